// Package util provides utility functions and types for the gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrRateLimited.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., RateLimitError, UnknownServiceError).
//     Each type implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownService  = errors.New("unknown service")
	ErrConfigInvalid   = errors.New("invalid configuration")
)

// AuthenticationError represents a failed authentication attempt.
// The message is safe to return to the caller; it never contains the
// presented credential.
type AuthenticationError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is checks if the error matches the target.
func (e *AuthenticationError) Is(target error) bool {
	if target == ErrUnauthenticated {
		return true
	}
	_, ok := target.(*AuthenticationError)
	return ok
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

// AuthorizationError represents a valid credential attempting a
// disallowed operation. Reserved for permission enforcement.
type AuthorizationError struct {
	Permission string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("missing permission: %s", e.Permission)
	}
	return "operation not permitted"
}

// Is checks if the error matches the target.
func (e *AuthorizationError) Is(target error) bool {
	if target == ErrForbidden {
		return true
	}
	_, ok := target.(*AuthorizationError)
	return ok
}

// RateLimitError represents a rate limit exceeded error.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, resets at: %s)",
		e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit int, resetAt time.Time) *RateLimitError {
	return &RateLimitError{Limit: limit, ResetAt: resetAt}
}

// ValidationError represents a malformed or missing request parameter.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// UnknownServiceError represents a request targeting an unrecognized
// proxy service.
type UnknownServiceError struct {
	Service string
}

// Error implements the error interface.
func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unsupported service: %s", e.Service)
}

// Is checks if the error matches the target.
func (e *UnknownServiceError) Is(target error) bool {
	if target == ErrUnknownService {
		return true
	}
	_, ok := target.(*UnknownServiceError)
	return ok
}

// NewUnknownServiceError creates a new UnknownServiceError.
func NewUnknownServiceError(service string) *UnknownServiceError {
	return &UnknownServiceError{Service: service}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
