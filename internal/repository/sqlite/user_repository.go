package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"usersvc/internal/domain"
	"usersvc/internal/repository"
)

const selectUser = `
SELECT id, email, username, created_at
FROM users
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, username, created_at)
VALUES (?, ?, ?, ?)`,
		user.ID.String(),
		user.Email,
		user.Username,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return domain.NewDuplicateKeyError(field, user)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE id = ?`, id.String())
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user      domain.User
		id        string
		createdAt string
	)
	if err := row.Scan(&id, &user.Email, &user.Username, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", id, err)
	}
	user.ID = parsedID

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	user.CreatedAt = ts.UTC()
	return &user, nil
}

// uniqueViolation reports which users column a constraint error refers to.
// The driver message reads "... UNIQUE constraint failed: users.<column> (<code>)".
func uniqueViolation(err error) (string, bool) {
	var serr *moderncsqlite.Error
	if !errors.As(err, &serr) {
		return "", false
	}
	if serr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	msg := serr.Error()
	if serr.Code() != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY &&
		serr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE &&
		!strings.Contains(msg, "UNIQUE constraint failed") {
		return "", false
	}
	if serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return domain.FieldID, true
	}
	return columnFromMessage(msg), true
}

func columnFromMessage(msg string) string {
	idx := strings.LastIndex(msg, "users.")
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len("users."):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z'))
	})
	if end >= 0 {
		rest = rest[:end]
	}
	switch rest {
	case domain.FieldID, domain.FieldEmail, domain.FieldUsername:
		return rest
	}
	return ""
}
