package response

import (
	"errors"
)

// Error is a domain error that carries the HTTP status it maps to.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// StatusOf returns the HTTP status carried by err, or fallback when err is not
// a response Error.
func StatusOf(err error, fallback int) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return fallback
}
