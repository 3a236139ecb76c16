package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/domain"
)

func TestNewUserNormalizes(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	created := time.Date(2026, 2, 19, 17, 16, 37, 123456789, loc)
	id := uuid.New()

	user, err := domain.NewUser(id, "alice@example.com", " alice ", created)
	require.NoError(t, err)

	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, time.UTC, user.CreatedAt.Location())
	assert.True(t, user.CreatedAt.Equal(created.Truncate(time.Microsecond)))
	assert.Equal(t, 123456000, user.CreatedAt.Nanosecond())
}

func TestNewUserValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		id       uuid.UUID
		email    string
		username string
		created  time.Time
		field    string
	}{
		{name: "nil id", id: uuid.Nil, email: "a@x.com", username: "alice", created: now, field: domain.FieldID},
		{name: "empty email", id: uuid.New(), email: "", username: "alice", created: now, field: domain.FieldEmail},
		{name: "blank username", id: uuid.New(), email: "a@x.com", username: "   ", created: now, field: domain.FieldUsername},
		{name: "zero created_at", id: uuid.New(), email: "a@x.com", username: "alice", field: domain.FieldCreatedAt},
		{name: "username with whitespace", id: uuid.New(), email: "a@x.com", username: "al ice", created: now, field: domain.FieldUsername},
		{name: "malformed email", id: uuid.New(), email: "not-an-email", username: "alice", created: now, field: domain.FieldEmail},
		{name: "padded email", id: uuid.New(), email: " a@x.com ", username: "alice", created: now, field: domain.FieldEmail},
		{name: "blank email", id: uuid.New(), email: "   ", username: "alice", created: now, field: domain.FieldEmail},
		{name: "username checked before email", id: uuid.New(), email: "", username: "", created: now, field: domain.FieldUsername},
		{name: "bad username with bad email", id: uuid.New(), email: "not-an-email", username: "al ice", created: now, field: domain.FieldUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := domain.NewUser(tt.id, tt.email, tt.username, tt.created)
			assert.Nil(t, user)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate(t *testing.T) {
	created := time.Date(2026, 2, 19, 17, 16, 37, 123456000, time.UTC)
	tests := []struct {
		name  string
		user  domain.User
		field string
	}{
		{name: "valid", user: domain.User{ID: uuid.New(), Email: "a@x.com", Username: "alice", CreatedAt: created}},
		{name: "whitespace username", user: domain.User{ID: uuid.New(), Email: "a@x.com", Username: " \t ", CreatedAt: created}, field: domain.FieldUsername},
		{name: "whitespace email", user: domain.User{ID: uuid.New(), Email: "   ", Username: "alice", CreatedAt: created}, field: domain.FieldEmail},
		{name: "sub-microsecond created_at", user: domain.User{ID: uuid.New(), Email: "a@x.com", Username: "alice", CreatedAt: created.Add(789)}, field: domain.FieldCreatedAt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDuplicateKeyError(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@x.com", Username: "alice"}

	err := domain.NewDuplicateKeyError(domain.FieldEmail, user)
	assert.True(t, errors.Is(err, domain.ErrDuplicateKey))
	assert.False(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "a@x.com", err.Value)
	assert.Equal(t, `user with email "a@x.com" already exists`, err.Error())

	assert.Equal(t, user.ID.String(), domain.NewDuplicateKeyError(domain.FieldID, user).Value)
	assert.Equal(t, "user already exists", (&domain.DuplicateKeyError{}).Error())
}
