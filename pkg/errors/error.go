package errors

import (
	"errors"
	"fmt"
)

// Re-exported from the standard library.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error extends the builtin error with a machine readable code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the default Error implementation.
type AppError struct {
	code    string
	message string
	err     error
	details []FieldError
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

// Message returns the client facing message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

// Details returns per-field validation details, if any.
func (e *AppError) Details() []FieldError {
	return e.details
}

func (e *AppError) Unwrap() error {
	return e.err
}

// WithDetails returns a copy of the error carrying field details.
func (e *AppError) WithDetails(details ...FieldError) *AppError {
	cp := *e
	cp.details = append(append([]FieldError(nil), e.details...), details...)
	return &cp
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Wrap wraps err, keeping the code of an existing AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
