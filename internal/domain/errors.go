package domain

import (
	"errors"
	"fmt"
)

// Column names of the users table, used to label validation and uniqueness failures.
const (
	FieldID        = "id"
	FieldEmail     = "email"
	FieldUsername  = "username"
	FieldCreatedAt = "created_at"
)

var (
	// ErrNotFound is returned when a lookup matches no user.
	ErrNotFound = errors.New("user not found")
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateKey matches any *DuplicateKeyError via errors.Is.
	ErrDuplicateKey = errors.New("duplicate key")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DuplicateKeyError reports a unique constraint violation on id, email or username.
// Field is empty when the storage engine did not say which constraint tripped.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "user already exists"
	}
	return fmt.Sprintf("user with %s %q already exists", e.Field, e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// NewDuplicateKeyError fills Value from user according to field.
func NewDuplicateKeyError(field string, user *User) *DuplicateKeyError {
	err := &DuplicateKeyError{Field: field}
	if user == nil {
		return err
	}
	switch field {
	case FieldID:
		err.Value = user.ID.String()
	case FieldEmail:
		err.Value = user.Email
	case FieldUsername:
		err.Value = user.Username
	}
	return err
}
