package attendance

import (
	"context"
	"time"

	"academy/internal/apperr"
)

// Status is a per-session attendance outcome.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case Present, Absent:
		return Status(raw), nil
	}
	return "", apperr.New(apperr.Validation, "status must be 'present' or 'absent'")
}

// Record is one student's attendance for one course session.
// At most one record exists per (course, student, date).
type Record struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	StudentID   string    `json:"student_id"`
	Date        time.Time `json:"date"`
	Status      Status    `json:"status"`
	CourseName  string    `json:"course_name,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats aggregates a student's attendance within one course.
type Stats struct {
	TotalSessions        int     `json:"total_sessions"`
	PresentCount         int     `json:"present_count"`
	AbsentCount          int     `json:"absent_count"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// Service implements attendance operations over a repository.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Mark upserts a record on the (course, student, date) key; marking again
// overwrites the prior status.
func (s *Service) Mark(ctx context.Context, courseID, studentID string, date time.Time, status Status) (Record, error) {
	if courseID == "" || studentID == "" || date.IsZero() {
		return Record{}, apperr.New(apperr.Validation, "course, student and date are required")
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return Record{}, err
	}
	return s.repo.Upsert(ctx, Record{CourseID: courseID, StudentID: studentID, Date: date, Status: status})
}

// ForStudent returns a student's records across all courses, newest first.
func (s *Service) ForStudent(ctx context.Context, studentID string) ([]Record, error) {
	return s.repo.ListForStudent(ctx, studentID)
}

// ForCourse returns all records of a course, newest first.
func (s *Service) ForCourse(ctx context.Context, courseID string) ([]Record, error) {
	return s.repo.ListForCourse(ctx, courseID)
}

// ForCourseOnDate returns one day's records, ordered by student name.
func (s *Service) ForCourseOnDate(ctx context.Context, courseID string, date time.Time) ([]Record, error) {
	return s.repo.ListForCourseOnDate(ctx, courseID, date)
}

// StatsFor aggregates a student's attendance in a course. Zero sessions
// yield a zero percentage rather than an error.
func (s *Service) StatsFor(ctx context.Context, studentID, courseID string) (Stats, error) {
	return s.repo.Stats(ctx, studentID, courseID)
}
