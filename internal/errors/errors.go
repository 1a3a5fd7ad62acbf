package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the session client and the development gateway
var (
	// Authentication errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidOTP       = errors.New("invalid otp")
	ErrOTPExpired       = errors.New("otp expired")
	ErrOTPAttempts      = errors.New("too many otp attempts")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired, please login again")
	ErrSessionInactive = errors.New("session inactive")

	// Customer errors
	ErrCustomerIDMissing = errors.New("no customer id available")

	// General errors
	ErrNotFound       = errors.New("not found")
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
