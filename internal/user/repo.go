package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"academy/internal/apperr"
)

// Repository persists user accounts.
type Repository interface {
	Create(ctx context.Context, usr User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
	PromoteToTeacher(ctx context.Context, studentID, courseID string) (User, error)
}

type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) Create(ctx context.Context, usr User) (User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.Role)
	if err := row.Scan(&usr.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, apperr.New(apperr.Conflict, "email already exists")
		}
		return User{}, err
	}
	return usr, nil
}

func (r *pgRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, created_at
		FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *pgRepository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, created_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *pgRepository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, password, role, created_at
		FROM users WHERE role = $1 ORDER BY name
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var usr User
		if err := rows.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash, &usr.Role, &usr.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, rows.Err()
}

// PromoteToTeacher runs the role change and the course assignment in a single
// transaction so a failed assignment cannot leave a promoted user without a
// course.
func (r *pgRepository) PromoteToTeacher(ctx context.Context, studentID, courseID string) (User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	var usr User
	row := tx.QueryRowContext(ctx, `
		UPDATE users SET role = 'teacher'
		WHERE id = $1
		RETURNING id, name, email, password, role, created_at
	`, studentID)
	if err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash, &usr.Role, &usr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.New(apperr.NotFound, "student not found")
		}
		return User{}, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE courses SET teacher = $1 WHERE id = $2`, studentID, courseID)
	if err != nil {
		return User{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return User{}, err
	} else if n == 0 {
		return User{}, apperr.New(apperr.NotFound, "course not found")
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return usr, nil
}

func scanUser(row *sql.Row) (User, error) {
	var usr User
	if err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash, &usr.Role, &usr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.New(apperr.NotFound, "user not found")
		}
		return User{}, err
	}
	return usr, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
