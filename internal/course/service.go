package course

import (
	"context"
	"time"

	"academy/internal/apperr"
)

// Course is a unit of teaching owned by at most one teacher.
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Duration    int       `json:"duration"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TeacherID   *string   `json:"teacher"`
	TeacherName *string   `json:"teacher_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RosterEntry is a student on a course roster.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeacherCourse is a course with its aggregated roster, as shown to the
// owning teacher.
type TeacherCourse struct {
	Course
	EnrolledStudentsCount int           `json:"enrolled_students_count"`
	Students              []RosterEntry `json:"students"`
}

// Service implements course operations over a repository.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new course. The teacher is optional. Date-range sanity
// (start before end) is intentionally not checked; the listing and detail
// views disagree about teacherless courses and product has not decided which
// is right, so both behaviors are kept as-is.
func (s *Service) Create(ctx context.Context, c Course) (Course, error) {
	if c.Name == "" || c.Duration <= 0 || c.StartDate.IsZero() || c.EndDate.IsZero() {
		return Course{}, apperr.New(apperr.Validation, "name, duration, start_date and end_date are required")
	}
	return s.repo.Create(ctx, c)
}

// GetByID returns a course with its teacher name when one is assigned.
func (s *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAll returns all courses that have a teacher assigned.
func (s *Service) GetAll(ctx context.Context) ([]Course, error) {
	return s.repo.ListAll(ctx)
}

// GetByTeacher returns a teacher's courses with roster details.
func (s *Service) GetByTeacher(ctx context.Context, teacherID string) ([]TeacherCourse, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// GetEnrolled returns the courses a student has been approved into.
func (s *Service) GetEnrolled(ctx context.Context, studentID string) ([]Course, error) {
	return s.repo.ListEnrolledByStudent(ctx, studentID)
}

// GetWithoutTeacher returns unassigned courses ordered by name.
func (s *Service) GetWithoutTeacher(ctx context.Context) ([]Course, error) {
	return s.repo.ListUnassigned(ctx)
}

// Update overwrites the descriptive fields of a course.
func (s *Service) Update(ctx context.Context, id string, c Course) (Course, error) {
	if c.Name == "" || c.Duration <= 0 || c.StartDate.IsZero() || c.EndDate.IsZero() {
		return Course{}, apperr.New(apperr.Validation, "name, duration, start_date and end_date are required")
	}
	return s.repo.Update(ctx, id, c)
}

// Delete removes a course and, via cascade, its roster, requests and
// attendance rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// AssignTeacher unconditionally overwrites the teacher reference. The
// "course must be unassigned" rule is enforced by the admin controller.
func (s *Service) AssignTeacher(ctx context.Context, courseID, teacherID string) (Course, error) {
	return s.repo.AssignTeacher(ctx, courseID, teacherID)
}

// AddStudent puts a student on the roster; a no-op when already present.
func (s *Service) AddStudent(ctx context.Context, courseID, studentID string) error {
	return s.repo.AddStudent(ctx, courseID, studentID)
}

// RemoveStudent takes a student off the roster; a no-op when absent.
func (s *Service) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	return s.repo.RemoveStudent(ctx, courseID, studentID)
}

// IsEnrolled reports roster membership.
func (s *Service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	return s.repo.IsEnrolled(ctx, courseID, studentID)
}
