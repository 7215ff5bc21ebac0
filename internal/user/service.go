package user

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"academy/internal/apperr"
)

// Role determines which operations a user may perform.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return Role(raw), nil
	}
	return "", apperr.New(apperr.Validation, "role must be admin, teacher or student")
}

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service implements account operations over a repository.
type Service struct {
	repo       Repository
	bcryptCost int
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

// Register creates an account with a hashed credential.
func (s *Service) Register(ctx context.Context, name, email, password string, role Role) (User, error) {
	if name == "" || email == "" || password == "" || role == "" {
		return User{}, apperr.New(apperr.Validation, "all fields are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Login checks credentials. Unknown email and wrong password produce the
// same error so callers cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, apperr.New(apperr.Validation, "email and password required")
	}
	invalid := apperr.New(apperr.Unauthorized, "invalid credentials")

	usr, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return User{}, invalid
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)) != nil {
		return User{}, invalid
	}
	return usr, nil
}

// GetByID returns a single user.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByRole returns all users holding a role, ordered by name.
func (s *Service) ListByRole(ctx context.Context, role Role) ([]User, error) {
	return s.repo.ListByRole(ctx, role)
}

// PromoteToTeacher flips a student's role to teacher and assigns the course
// to them. Both writes happen in one transaction; eligibility checks belong
// to the caller.
func (s *Service) PromoteToTeacher(ctx context.Context, studentID, courseID string) (User, error) {
	return s.repo.PromoteToTeacher(ctx, studentID, courseID)
}
