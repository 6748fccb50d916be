package proxy

import (
	"errors"
	"fmt"
)

// Sentinel errors for proxy operations.
var (
	// ErrInvalidTargetURL indicates that the assembled upstream URL is
	// invalid.
	ErrInvalidTargetURL = errors.New("invalid target URL")

	// ErrUpstreamUnavailable indicates that the upstream could not be
	// reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// DispatchError reports a transport-level failure while forwarding a
// request upstream. An upstream response with a non-2xx status is not
// a dispatch error; the status is relayed to the caller instead.
type DispatchError struct {
	Service string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dispatch failed [%s]: %s: %v", e.Service, e.Message, e.Cause)
	}
	return fmt.Sprintf("dispatch failed [%s]: %s", e.Service, e.Message)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// NewDispatchError creates a dispatch error for the given service.
func NewDispatchError(service, message string, cause error) *DispatchError {
	return &DispatchError{Service: service, Message: message, Cause: cause}
}

// IsDispatchError reports whether err is a DispatchError.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}
