package enrollment

import (
	"context"
	"time"

	"academy/internal/apperr"
)

// Request is a student's petition to join a course. The course's teacher at
// request time is denormalized onto the row so teacher views stay a single
// filtered query.
type Request struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	CourseID    string    `json:"course_id"`
	StudentID   string    `json:"student_id"`
	IsApproved  bool      `json:"is_approved"`
	TeacherName string    `json:"teacher_name,omitempty"`
	CourseName  string    `json:"course_name,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service implements enrollment request operations over a repository.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRequest inserts a pending request. At most one open (pending or
// approved) request may exist per (student, course); re-requesting after a
// rejection is allowed.
func (s *Service) CreateRequest(ctx context.Context, teacherID, courseID, studentID string) (Request, error) {
	if teacherID == "" || courseID == "" || studentID == "" {
		return Request{}, apperr.New(apperr.Validation, "teacher, course and student are required")
	}
	open, err := s.repo.HasOpen(ctx, courseID, studentID)
	if err != nil {
		return Request{}, err
	}
	if open {
		return Request{}, apperr.New(apperr.Conflict, "an enrollment request for this course is already open")
	}
	return s.repo.Create(ctx, Request{TeacherID: teacherID, CourseID: courseID, StudentID: studentID})
}

// ListAll returns every request, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Request, error) {
	return s.repo.ListAll(ctx)
}

// ListForTeacher returns requests addressed to a teacher, newest first.
func (s *Service) ListForTeacher(ctx context.Context, teacherID string) ([]Request, error) {
	return s.repo.ListForTeacher(ctx, teacherID)
}

// ListForStudent returns a student's own requests, newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Request, error) {
	return s.repo.ListForStudent(ctx, studentID)
}

// GetForTeacher returns a request only when it is addressed to the given
// teacher.
func (s *Service) GetForTeacher(ctx context.Context, id, teacherID string) (Request, error) {
	return s.repo.GetForTeacher(ctx, id, teacherID)
}

// SetApproval updates the flag and mutates the course roster accordingly:
// approval adds the student, rejection removes them (revoking access when a
// previously approved request is rejected). Both writes share a transaction.
func (s *Service) SetApproval(ctx context.Context, id string, approved bool) (Request, error) {
	return s.repo.SetApproval(ctx, id, approved)
}
