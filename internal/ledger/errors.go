package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError reports user input that was rejected before any state
// changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a profile or trade id that does not exist.
type NotFoundError struct {
	Kind string
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// PersistenceError wraps a storage failure. The operation was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	ErrLastProfile       = &ValidationError{Reason: "cannot delete the last profile"}
	ErrIncorrectPassword = &ValidationError{Field: "password", Reason: "incorrect password"}
	ErrUsernameTaken     = &ValidationError{Field: "username", Reason: "username already exists"}
	ErrInvalidTransition = &ValidationError{Field: "status", Reason: "a closed trade cannot be reopened"}
	ErrNoAPIKey          = errors.New("no API key configured for this profile")
)

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// storeErr maps gorm's not-found error to NotFoundError and wraps every
// other failure in a PersistenceError. Errors already classified pass through.
func storeErr(op, kind string, id uint, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	var ve *ValidationError
	var nf *NotFoundError
	var pe *PersistenceError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
