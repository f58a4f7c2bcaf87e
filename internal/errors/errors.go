package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Session errors
	ErrNoToken        = errors.New("no authentication token available")
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")

	// Token errors
	ErrInvalidToken           = errors.New("invalid token")
	ErrNoRefreshToken         = errors.New("no refresh token available")
	ErrInvalidRefreshResponse = errors.New("invalid refresh response")

	// Transport errors
	ErrTransport   = errors.New("connectivity error")
	ErrCircuitOpen = errors.New("backend temporarily unavailable")
	ErrAborted     = errors.New("request superseded")

	// Response errors
	ErrEmptyResponse     = errors.New("no data received in response")
	ErrMalformedResponse = errors.New("malformed response body")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
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
