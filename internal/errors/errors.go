package errors

import (
	"errors"
	"fmt"
)

// Common error types for the CiensPay front end
var (
	// Session errors
	ErrNotLoggedIn = errors.New("not logged in")

	// Backend errors
	ErrNetwork            = errors.New("network error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRefreshUnavailable = errors.New("refresh unavailable")
	ErrBadEnvelope        = errors.New("malformed response envelope")

	// Form errors
	ErrSubmitInProgress  = errors.New("submit already in progress")
	ErrFormCompleted     = errors.New("form already submitted")
	ErrInvalidCardNumber = errors.New("invalid card number")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
