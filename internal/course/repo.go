package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"academy/internal/apperr"
)

// Repository persists courses and roster membership.
type Repository interface {
	Create(ctx context.Context, c Course) (Course, error)
	GetByID(ctx context.Context, id string) (Course, error)
	Update(ctx context.Context, id string, c Course) (Course, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Course, error)
	ListUnassigned(ctx context.Context) ([]Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]TeacherCourse, error)
	ListEnrolledByStudent(ctx context.Context, studentID string) ([]Course, error)
	AssignTeacher(ctx context.Context, courseID, teacherID string) (Course, error)
	AddStudent(ctx context.Context, courseID, studentID string) error
	RemoveStudent(ctx context.Context, courseID, studentID string) error
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) Create(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, name, duration, description, start_date, end_date, teacher)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, c.ID, c.Name, c.Duration, c.Description, c.StartDate, c.EndDate, c.TeacherID)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Course{}, err
	}
	return c, nil
}

// GetByID left-joins the teacher so teacherless courses stay visible in the
// detail view.
func (r *pgRepository) GetByID(ctx context.Context, id string) (Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.duration, COALESCE(c.description, ''), c.start_date, c.end_date,
		       c.teacher, u.name, c.created_at
		FROM courses c
		LEFT JOIN users u ON c.teacher = u.id
		WHERE c.id = $1
	`, id)
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Duration, &c.Description, &c.StartDate, &c.EndDate,
		&c.TeacherID, &c.TeacherName, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, apperr.New(apperr.NotFound, "course not found")
		}
		return Course{}, err
	}
	return c, nil
}

func (r *pgRepository) Update(ctx context.Context, id string, c Course) (Course, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE courses
		SET name = $1, duration = $2, description = $3, start_date = $4, end_date = $5
		WHERE id = $6
		RETURNING id, teacher, created_at
	`, c.Name, c.Duration, c.Description, c.StartDate, c.EndDate, id)
	if err := row.Scan(&c.ID, &c.TeacherID, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, apperr.New(apperr.NotFound, "course not found")
		}
		return Course{}, err
	}
	return c, nil
}

func (r *pgRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return apperr.New(apperr.NotFound, "course not found")
	}
	return nil
}

// ListAll inner-joins the teacher, so teacherless courses are excluded from
// the general listing. Asymmetric with GetByID on purpose; flagged for
// product clarification.
func (r *pgRepository) ListAll(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.duration, COALESCE(c.description, ''), c.start_date, c.end_date,
		       c.teacher, u.name, c.created_at
		FROM courses c
		JOIN users u ON c.teacher = u.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

func (r *pgRepository) ListUnassigned(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.duration, COALESCE(c.description, ''), c.start_date, c.end_date,
		       c.teacher, NULL::text, c.created_at
		FROM courses c
		WHERE c.teacher IS NULL
		ORDER BY c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

func (r *pgRepository) ListByTeacher(ctx context.Context, teacherID string) ([]TeacherCourse, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.duration, COALESCE(c.description, ''), c.start_date, c.end_date,
		       c.teacher, c.created_at,
		       COUNT(cs.student_id) AS enrolled_students_count,
		       COALESCE(
		           json_agg(json_build_object('id', u.id, 'name', u.name))
		           FILTER (WHERE u.id IS NOT NULL),
		           '[]'::json
		       ) AS students
		FROM courses c
		LEFT JOIN course_students cs ON cs.course_id = c.id
		LEFT JOIN users u ON u.id = cs.student_id
		WHERE c.teacher = $1
		GROUP BY c.id
		ORDER BY c.name
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []TeacherCourse
	for rows.Next() {
		var tc TeacherCourse
		var students []byte
		err := rows.Scan(&tc.ID, &tc.Name, &tc.Duration, &tc.Description, &tc.StartDate, &tc.EndDate,
			&tc.TeacherID, &tc.CreatedAt, &tc.EnrolledStudentsCount, &students)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(students, &tc.Students); err != nil {
			return nil, err
		}
		courses = append(courses, tc)
	}
	return courses, rows.Err()
}

func (r *pgRepository) ListEnrolledByStudent(ctx context.Context, studentID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.duration, COALESCE(c.description, ''), c.start_date, c.end_date,
		       c.teacher, u.name, c.created_at
		FROM courses c
		JOIN course_students cs ON cs.course_id = c.id AND cs.student_id = $1
		JOIN users u ON c.teacher = u.id
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

func (r *pgRepository) AssignTeacher(ctx context.Context, courseID, teacherID string) (Course, error) {
	var c Course
	row := r.db.QueryRowContext(ctx, `
		UPDATE courses SET teacher = $1
		WHERE id = $2
		RETURNING id, name, duration, COALESCE(description, ''), start_date, end_date, teacher, created_at
	`, teacherID, courseID)
	err := row.Scan(&c.ID, &c.Name, &c.Duration, &c.Description, &c.StartDate, &c.EndDate, &c.TeacherID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, apperr.New(apperr.NotFound, "course not found")
		}
		return Course{}, err
	}
	return c, nil
}

func (r *pgRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO course_students (course_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (course_id, student_id) DO NOTHING
	`, courseID, studentID)
	return err
}

func (r *pgRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM course_students WHERE course_id = $1 AND student_id = $2
	`, courseID, studentID)
	return err
}

func (r *pgRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var exists bool
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM course_students WHERE course_id = $1 AND student_id = $2
		)
	`, courseID, studentID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanCourses(rows *sql.Rows) ([]Course, error) {
	var courses []Course
	for rows.Next() {
		var c Course
		err := rows.Scan(&c.ID, &c.Name, &c.Duration, &c.Description, &c.StartDate, &c.EndDate,
			&c.TeacherID, &c.TeacherName, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
