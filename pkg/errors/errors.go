// Package errors defines the error taxonomy shared by the corpus loader, the
// ranker and the generation pipeline, and maps it onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrNetwork         = errors.New("network error")
	ErrIO              = errors.New("io error")
	ErrNotFound        = errors.New("not found")
	ErrGeneration      = errors.New("generation failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
	ErrTimeout         = errors.New("operation timed out")
)

// AppError attaches a human message and a remediation hint to a sentinel.
type AppError struct {
	Err        error
	Message    string
	Hint       string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// WithHint returns e with the remediation hint set.
func (e *AppError) WithHint(format string, args ...any) *AppError {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Hint returns the first remediation hint found in err's chain.
func Hint(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Hint
	}
	return ""
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
