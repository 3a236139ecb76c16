package repository

import (
	"context"

	"github.com/google/uuid"

	"usersvc/internal/domain"
)

// UserRepository defines persistence operations for User entities.
//
// Create returns a *domain.ValidationError for missing fields and a
// *domain.DuplicateKeyError when id, email or username is already taken.
// Lookups return domain.ErrNotFound on a miss.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
