package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"usersvc/internal/domain"
	"usersvc/internal/repository"
)

const uniqueViolationCode = "23505"

// Default constraint names PostgreSQL assigns to the users table.
var constraintFields = map[string]string{
	"users_pkey":         domain.FieldID,
	"users_email_key":    domain.FieldEmail,
	"users_username_key": domain.FieldUsername,
}

const selectUser = `
SELECT id, email, username, created_at
FROM users
`

// UserRepository implements repository.UserRepository with PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
INSERT INTO users (id, email, username, created_at)
VALUES ($1, $2, $3, $4)`,
		user.ID,
		user.Email,
		user.Username,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.NewDuplicateKeyError(constraintFields[pgErr.ConstraintName], user)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE email = $1`, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+`WHERE username = $1`, username))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
