package store

import (
	"context"
	"database/sql"
)

// Membership is a normalized join table instead of an id array on courses;
// the primary key enforces insert-if-absent semantics in the store itself.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'teacher', 'student')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		duration INTEGER NOT NULL,
		description TEXT,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		teacher UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS course_students (
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (course_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollment_requests (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		teacher_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_approved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('present', 'absent')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (course_id, student_id, date)
	)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
