package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned for 401 responses. For anonymous visitors it is
	// the expected answer of the auth probes, not a failure.
	ErrAuthRequired = errors.New("authentication required")
	// ErrRejected means the backend answered but refused the request
	// (success=false or a 4xx status).
	ErrRejected = errors.New("request rejected by backend")
	// ErrUnavailable covers transport errors, 5xx answers and an open circuit.
	ErrUnavailable = errors.New("backend unavailable")
)

type APIError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.Status)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Err, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Message extracts the backend-provided message from err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
