package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrExternalService = errors.New("external service unavailable")
	ErrDuplicateName   = errors.New("duplicate name")

	ErrInvalidCategoryType = fmt.Errorf("%w: category type must be income or expense", ErrValidation)
	ErrInvalidDate         = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	ErrInvalidScope        = fmt.Errorf("%w: invalid budget scope", ErrValidation)
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the entity that could not be located.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// UserError carries a message that is safe to show in the UI next to the
// underlying cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.UserMessage
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, ErrDuplicateName):
		return "Name already exists"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrExternalService):
		return "Currency service is not responding"
	default:
		return "Something went wrong"
	}
}
