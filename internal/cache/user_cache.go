package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"usersvc/internal/domain"
	"usersvc/internal/repository"
)

const (
	keyByID       = "user:id:"
	keyByEmail    = "user:email:"
	keyByUsername = "user:username:"
)

type cachedUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository is a read-through Redis cache in front of another
// repository. Users are never updated, so entries are only dropped by TTL.
// Redis failures are logged and the backend answers instead.
type UserRepository struct {
	next   repository.UserRepository
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewUserRepository wraps next. A zero ttl keeps entries until evicted by Redis.
func NewUserRepository(next repository.UserRepository, rdb redis.Cmdable, ttl time.Duration, logger logrus.FieldLogger) *UserRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserRepository{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.WithField("component", "user-cache"),
	}
}

func (c *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := c.next.Create(ctx, user); err != nil {
		return err
	}
	c.store(ctx, user)
	return nil
}

func (c *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := c.load(ctx, id); ok {
		return user, nil
	}
	user, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, user)
	return user, nil
}

func (c *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.getByIndex(ctx, keyByEmail+email, func() (*domain.User, error) {
		return c.next.GetByEmail(ctx, email)
	})
}

func (c *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return c.getByIndex(ctx, keyByUsername+username, func() (*domain.User, error) {
		return c.next.GetByUsername(ctx, username)
	})
}

func (c *UserRepository) getByIndex(ctx context.Context, key string, fetch func() (*domain.User, error)) (*domain.User, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if id, perr := uuid.Parse(raw); perr == nil {
			if user, ok := c.load(ctx, id); ok {
				return user, nil
			}
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warnf("read %s: %v", key, err)
	}

	user, err := fetch()
	if err != nil {
		return nil, err
	}
	c.store(ctx, user)
	return user, nil
}

func (c *UserRepository) load(ctx context.Context, id uuid.UUID) (*domain.User, bool) {
	b, err := c.rdb.Get(ctx, keyByID+id.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf("read user %s: %v", id, err)
		}
		return nil, false
	}

	var cu cachedUser
	if err := json.Unmarshal(b, &cu); err != nil {
		c.logger.Warnf("decode user %s: %v", id, err)
		return nil, false
	}
	return &domain.User{
		ID:        cu.ID,
		Email:     cu.Email,
		Username:  cu.Username,
		CreatedAt: cu.CreatedAt.UTC(),
	}, true
}

func (c *UserRepository) store(ctx context.Context, user *domain.User) {
	if err := c.set(ctx, user); err != nil {
		c.logger.Warnf("cache user %s: %v", user.ID, err)
	}
}

func (c *UserRepository) set(ctx context.Context, user *domain.User) error {
	b, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	id := user.ID.String()
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyByID+id, b, c.ttl)
		pipe.Set(ctx, keyByEmail+user.Email, id, c.ttl)
		pipe.Set(ctx, keyByUsername+user.Username, id, c.ttl)
		return nil
	})
	return err
}
