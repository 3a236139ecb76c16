package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// User is an identity record persisted in the users table.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	CreatedAt time.Time
}

// NewUser builds a validated User. The username is trimmed, the email is
// taken as given, and created_at is normalised to UTC at microsecond
// precision so it survives a TIMESTAMPTZ round trip unchanged.
// The username is checked before the email.
func NewUser(id uuid.UUID, email, username string, createdAt time.Time) (*User, error) {
	user := &User{
		ID:        id,
		Email:     email,
		Username:  strings.TrimSpace(username),
		CreatedAt: NormalizeTime(createdAt),
	}
	if user.ID == uuid.Nil {
		return nil, &ValidationError{Field: FieldID, Reason: "is required"}
	}
	if user.Username == "" {
		return nil, &ValidationError{Field: FieldUsername, Reason: "is required"}
	}
	if strings.IndexFunc(user.Username, unicode.IsSpace) >= 0 {
		return nil, &ValidationError{Field: FieldUsername, Value: username, Reason: "must not contain whitespace"}
	}
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: FieldEmail, Value: email, Reason: "is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, &ValidationError{Field: FieldEmail, Value: email, Reason: "not a valid email address"}
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate reports the first required field that is missing, blank, or that
// no backend can store exactly.
func (u *User) Validate() error {
	switch {
	case u.ID == uuid.Nil:
		return &ValidationError{Field: FieldID, Reason: "is required"}
	case strings.TrimSpace(u.Username) == "":
		return &ValidationError{Field: FieldUsername, Value: u.Username, Reason: "is required"}
	case strings.TrimSpace(u.Email) == "":
		return &ValidationError{Field: FieldEmail, Value: u.Email, Reason: "is required"}
	case u.CreatedAt.IsZero():
		return &ValidationError{Field: FieldCreatedAt, Reason: "is required"}
	case !u.CreatedAt.Equal(u.CreatedAt.Truncate(time.Microsecond)):
		return &ValidationError{
			Field:  FieldCreatedAt,
			Value:  u.CreatedAt.Format(time.RFC3339Nano),
			Reason: "must not be more precise than a microsecond",
		}
	}
	return nil
}

// NormalizeTime converts t to UTC and drops sub-microsecond precision.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
