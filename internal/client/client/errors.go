package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrMalformedResponse = errors.New("malformed server response")
)

// StatusError is a response whose status code the operation does not accept.
// errors.Is matches ErrUnauthorized for 401 and ErrNotFound for 404. A 403
// matches neither: the token is fine, the resource is off limits.
type StatusError struct {
	StatusCode int
	// Message is the backend's "message" (or problem-details "title"), if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
