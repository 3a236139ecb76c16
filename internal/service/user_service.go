package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"usersvc/internal/domain"
	"usersvc/internal/notify"
	"usersvc/internal/repository"
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, email, username string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Option customises a UserService.
type Option func(*userService)

// WithClock replaces time.Now as the source of created_at.
func WithClock(now func() time.Time) Option {
	return func(s *userService) { s.now = now }
}

// WithIDGenerator replaces uuid.New as the source of user ids.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *userService) { s.newID = newID }
}

type userService struct {
	users    repository.UserRepository
	notifier notify.UserNotifier
	now      func() time.Time
	newID    func() uuid.UUID
}

func NewUserService(users repository.UserRepository, notifier notify.UserNotifier, opts ...Option) UserService {
	s := &userService{
		users:    users,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register assigns an id and creation time, persists the user and notifies on success.
func (s *userService) Register(ctx context.Context, email, username string) (*domain.User, error) {
	user, err := domain.NewUser(s.newID(), email, username, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.UserCreated(ctx, *user)
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}
