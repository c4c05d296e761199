package services

import (
	"errors"
	"strings"
)

var (
	// ErrConflict means the stored table changed since the edited view was
	// read and the conflict policy is to reject.
	ErrConflict = errors.New("jobs were changed by someone else since this view was loaded")
	// ErrForbidden means the caller's role does not allow the operation.
	ErrForbidden = errors.New("operation requires the admin role")
	// ErrUserExists is returned when adding a username that is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when deleting an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete the signed-in user")
)

// FieldError is one rejected form field with a message fit for display.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the rejected fields of an input. Nothing is written
// when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Message returns the message for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}
