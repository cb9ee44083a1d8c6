package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the auth, services and storage
// packages matches exactly one of these with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrAuth            = errors.New("invalid username or password")
	ErrNotFound        = errors.New("not found")
	ErrStore           = errors.New("store error")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError is a user-correctable input problem. Message is safe to
// show back to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var (
	ErrCredentialsRequired = &ValidationError{Message: "Username and password are required."}
	ErrLoginFieldsRequired = &ValidationError{Message: "Please enter both username and password."}
	ErrPasswordMismatch    = &ValidationError{Message: "Passwords do not match."}
	ErrPasswordTooShort    = &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength)}
	ErrUsernameTooLong     = &ValidationError{Message: fmt.Sprintf("Username must be at most %d characters long.", MaxUsernameLength)}
	ErrUsernameTaken       = &ValidationError{Message: "Username already exists."}

	ErrAmountRequired     = &ValidationError{Message: "Amount is required."}
	ErrInvalidAmount      = &ValidationError{Message: "Amount must be a positive number."}
	ErrAmountSign         = &ValidationError{Message: "Amount sign does not match entry type."}
	ErrInvalidEntryType   = &ValidationError{Message: "Type must be income or expense."}
	ErrDescriptionTooLong = &ValidationError{Message: fmt.Sprintf("Description must be at most %d characters long.", MaxDescriptionLength)}
	ErrCategoryTooLong    = &ValidationError{Message: fmt.Sprintf("Category must be at most %d characters long.", MaxCategoryLength)}
)

// StoreError wraps a persistence failure. The wrapped error is for logs only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// WrapStore returns nil for nil, leaves already classified errors alone and
// marks anything else as a store failure.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// UserMessage returns the notice shown to the user for err.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrAuth):
		return "Invalid username or password."
	case errors.Is(err, ErrNotFound):
		return "Entry not found."
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to continue."
	default:
		return "Something went wrong, please try again."
	}
}
