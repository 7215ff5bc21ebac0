package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance records.
type Repository interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	ListForStudent(ctx context.Context, studentID string) ([]Record, error)
	ListForCourse(ctx context.Context, courseID string) ([]Record, error)
	ListForCourseOnDate(ctx context.Context, courseID string, date time.Time) ([]Record, error)
	Stats(ctx context.Context, studentID, courseID string) (Stats, error)
}

type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

// Upsert overwrites the status and refreshes created_at when the
// (course, student, date) key already exists.
func (r *pgRepository) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, course_id, student_id, date, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course_id, student_id, date)
		DO UPDATE SET status = EXCLUDED.status, created_at = NOW()
		RETURNING id, created_at
	`, rec.ID, rec.CourseID, rec.StudentID, rec.Date, rec.Status)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *pgRepository) ListForStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.course_id, a.student_id, a.date, a.status, a.created_at,
		       c.name, u.name
		FROM attendance a
		JOIN courses c ON a.course_id = c.id
		JOIN users u ON c.teacher = u.id
		WHERE a.student_id = $1
		ORDER BY a.date DESC, c.name
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.Date, &rec.Status,
			&rec.CreatedAt, &rec.CourseName, &rec.TeacherName)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *pgRepository) ListForCourse(ctx context.Context, courseID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.course_id, a.student_id, a.date, a.status, a.created_at, u.name
		FROM attendance a
		JOIN users u ON a.student_id = u.id
		WHERE a.course_id = $1
		ORDER BY a.date DESC, u.name
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourseRecords(rows)
}

func (r *pgRepository) ListForCourseOnDate(ctx context.Context, courseID string, date time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.course_id, a.student_id, a.date, a.status, a.created_at, u.name
		FROM attendance a
		JOIN users u ON a.student_id = u.id
		WHERE a.course_id = $1 AND a.date = $2
		ORDER BY u.name
	`, courseID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourseRecords(rows)
}

// Stats guards the percentage against a zero session count in SQL; a student
// with no sessions gets 0, not a division error.
func (r *pgRepository) Stats(ctx context.Context, studentID, courseID string) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) AS total_sessions,
		       COUNT(*) FILTER (WHERE status = 'present') AS present_count,
		       COUNT(*) FILTER (WHERE status = 'absent') AS absent_count,
		       CASE WHEN COUNT(*) = 0 THEN 0
		            ELSE ROUND(COUNT(*) FILTER (WHERE status = 'present')::DECIMAL
		                       / COUNT(*) * 100, 2)
		       END AS attendance_percentage
		FROM attendance
		WHERE student_id = $1 AND course_id = $2
	`, studentID, courseID)
	var st Stats
	if err := row.Scan(&st.TotalSessions, &st.PresentCount, &st.AbsentCount, &st.AttendancePercentage); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func scanCourseRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.Date, &rec.Status,
			&rec.CreatedAt, &rec.StudentName)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
