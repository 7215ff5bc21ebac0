package enrollment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"academy/internal/apperr"
)

// Repository persists enrollment requests.
type Repository interface {
	Create(ctx context.Context, req Request) (Request, error)
	ListAll(ctx context.Context) ([]Request, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]Request, error)
	ListForStudent(ctx context.Context, studentID string) ([]Request, error)
	GetForTeacher(ctx context.Context, id, teacherID string) (Request, error)
	HasOpen(ctx context.Context, courseID, studentID string) (bool, error)
	SetApproval(ctx context.Context, id string, approved bool) (Request, error)
}

type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) Create(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO enrollment_requests (id, teacher_id, course_id, student_id)
		VALUES ($1, $2, $3, $4)
		RETURNING is_approved, created_at, updated_at
	`, req.ID, req.TeacherID, req.CourseID, req.StudentID)
	if err := row.Scan(&req.IsApproved, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r *pgRepository) ListAll(ctx context.Context) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT er.id, er.teacher_id, er.course_id, er.student_id, er.is_approved,
		       t.name, c.name, s.name, er.created_at, er.updated_at
		FROM enrollment_requests er
		JOIN users t ON er.teacher_id = t.id
		JOIN courses c ON er.course_id = c.id
		JOIN users s ON er.student_id = s.id
		ORDER BY er.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *pgRepository) ListForTeacher(ctx context.Context, teacherID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT er.id, er.teacher_id, er.course_id, er.student_id, er.is_approved,
		       t.name, c.name, s.name, er.created_at, er.updated_at
		FROM enrollment_requests er
		JOIN users t ON er.teacher_id = t.id
		JOIN courses c ON er.course_id = c.id
		JOIN users s ON er.student_id = s.id
		WHERE er.teacher_id = $1
		ORDER BY er.created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *pgRepository) ListForStudent(ctx context.Context, studentID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT er.id, er.teacher_id, er.course_id, er.student_id, er.is_approved,
		       t.name, c.name, s.name, er.created_at, er.updated_at
		FROM enrollment_requests er
		JOIN users t ON er.teacher_id = t.id
		JOIN courses c ON er.course_id = c.id
		JOIN users s ON er.student_id = s.id
		WHERE er.student_id = $1
		ORDER BY er.created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// GetForTeacher is a direct filtered lookup; ownership is part of the query
// rather than a scan over the teacher's request list.
func (r *pgRepository) GetForTeacher(ctx context.Context, id, teacherID string) (Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, course_id, student_id, is_approved, created_at, updated_at
		FROM enrollment_requests
		WHERE id = $1 AND teacher_id = $2
	`, id, teacherID)
	var req Request
	err := row.Scan(&req.ID, &req.TeacherID, &req.CourseID, &req.StudentID,
		&req.IsApproved, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, apperr.New(apperr.NotFound, "enrollment request not found or not authorized")
		}
		return Request{}, err
	}
	return req, nil
}

// HasOpen reports whether a pending or approved request exists for the pair.
func (r *pgRepository) HasOpen(ctx context.Context, courseID, studentID string) (bool, error) {
	var exists bool
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM enrollment_requests
			WHERE course_id = $1 AND student_id = $2
			AND (is_approved OR updated_at = created_at)
		)
	`, courseID, studentID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SetApproval updates the flag and the course roster in one transaction so a
// failed roster write cannot leave an approved request without enrollment.
func (r *pgRepository) SetApproval(ctx context.Context, id string, approved bool) (Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback()

	var req Request
	row := tx.QueryRowContext(ctx, `
		UPDATE enrollment_requests
		SET is_approved = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, teacher_id, course_id, student_id, is_approved, created_at, updated_at
	`, id, approved)
	err = row.Scan(&req.ID, &req.TeacherID, &req.CourseID, &req.StudentID,
		&req.IsApproved, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, apperr.New(apperr.NotFound, "enrollment request not found")
		}
		return Request{}, err
	}

	if approved {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO course_students (course_id, student_id)
			VALUES ($1, $2)
			ON CONFLICT (course_id, student_id) DO NOTHING
		`, req.CourseID, req.StudentID)
	} else {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM course_students WHERE course_id = $1 AND student_id = $2
		`, req.CourseID, req.StudentID)
	}
	if err != nil {
		return Request{}, err
	}

	if err := tx.Commit(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func scanRequests(rows *sql.Rows) ([]Request, error) {
	var reqs []Request
	for rows.Next() {
		var req Request
		err := rows.Scan(&req.ID, &req.TeacherID, &req.CourseID, &req.StudentID, &req.IsApproved,
			&req.TeacherName, &req.CourseName, &req.StudentName, &req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}
