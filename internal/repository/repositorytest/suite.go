// Package repositorytest holds the behaviour every repository.UserRepository
// implementation must share. Backend packages call Run from their tests.
package repositorytest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/domain"
	"usersvc/internal/repository"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) repository.UserRepository

// NewUser builds a valid user with the given email and username.
func NewUser(t *testing.T, email, username string) *domain.User {
	t.Helper()
	created := time.Date(2026, 2, 19, 17, 16, 37, 654321000, time.FixedZone("CET", 3600))
	user, err := domain.NewUser(uuid.New(), email, username, created)
	require.NoError(t, err)
	return user
}

// Run executes the shared suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateThenGetByID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser(t, "a@x.com", "alice")

		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assertSameUser(t, user, got)
	})

	t.Run("GetByEmailAndUsername", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser(t, "a@x.com", "alice")
		require.NoError(t, repo.Create(ctx, user))

		byEmail, err := repo.GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assertSameUser(t, user, byEmail)

		byUsername, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assertSameUser(t, user, byUsername)
	})

	t.Run("CreatedAtPreserved", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser(t, "a@x.com", "alice")
		want := user.CreatedAt
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, want.Equal(got.CreatedAt), "want %s, got %s", want, got.CreatedAt)
		assert.Equal(t, want.UnixMicro(), got.CreatedAt.UnixMicro())
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, NewUser(t, "a@x.com", "alice")))

		err := repo.Create(ctx, NewUser(t, "a@x.com", "bob"))
		assertDuplicate(t, err, domain.FieldEmail)

		_, err = repo.GetByUsername(ctx, "bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, NewUser(t, "a@x.com", "alice")))

		err := repo.Create(ctx, NewUser(t, "b@x.com", "alice"))
		assertDuplicate(t, err, domain.FieldUsername)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first := NewUser(t, "a@x.com", "alice")
		require.NoError(t, repo.Create(ctx, first))

		second := NewUser(t, "b@x.com", "bob")
		second.ID = first.ID
		err := repo.Create(ctx, second)
		assertDuplicate(t, err, domain.FieldID)
	})

	t.Run("MissingFields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		user := NewUser(t, "a@x.com", "alice")
		user.Username = ""
		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = repo.GetByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("BlankFields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		blankUsername := NewUser(t, "a@x.com", "alice")
		blankUsername.Username = "\t"
		err := repo.Create(ctx, blankUsername)
		assertInvalid(t, err, domain.FieldUsername)

		blankEmail := NewUser(t, "b@x.com", "bob")
		blankEmail.Email = "   "
		err = repo.Create(ctx, blankEmail)
		assertInvalid(t, err, domain.FieldEmail)

		_, err = repo.GetByID(ctx, blankUsername.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByID(ctx, blankEmail.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CreateLeavesInputUntouched", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		created := time.Date(2026, 2, 19, 17, 16, 37, 123456000, time.FixedZone("CET", 3600))
		user := &domain.User{ID: uuid.New(), Email: "a@x.com", Username: "alice", CreatedAt: created}
		input := *user

		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, input, *user)

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, created.Equal(got.CreatedAt), "want %s, got %s", created, got.CreatedAt)
		assert.Equal(t, created.UnixNano(), got.CreatedAt.UnixNano())
	})

	t.Run("SubMicrosecondCreatedAtRejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		created := time.Date(2026, 2, 19, 17, 16, 37, 123456789, time.FixedZone("CET", 3600))
		user := &domain.User{ID: uuid.New(), Email: "a@x.com", Username: "alice", CreatedAt: created}
		input := *user

		err := repo.Create(ctx, user)
		assertInvalid(t, err, domain.FieldCreatedAt)
		assert.Equal(t, input, *user)

		_, err = repo.GetByID(ctx, user.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ConcurrentDuplicates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user, err := domain.NewUser(uuid.New(), "race@x.com", uuid.NewString(), time.Now())
				if err != nil {
					t.Error(err)
					return
				}
				err = repo.Create(ctx, user)
				switch {
				case err == nil:
					mu.Lock()
					succeeded++
					mu.Unlock()
				case !errors.Is(err, domain.ErrDuplicateKey):
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})
}

func assertSameUser(t *testing.T, want, got *domain.User) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.Username, got.Username)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func assertDuplicate(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	var dup *domain.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, field, dup.Field)
}

func assertInvalid(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, field, verr.Field)
}
