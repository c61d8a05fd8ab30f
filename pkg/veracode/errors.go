package veracode

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrNotFound indicates the platform returned 404 for the resource.
	ErrNotFound = errors.New("veracode: resource not found")

	// ErrUnauthorized indicates the credentials were rejected (401/403).
	ErrUnauthorized = errors.New("veracode: request not authorized")

	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("veracode: transient failure")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("veracode: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// TransientFetchError wraps a failure that may succeed on retry.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	var apiErr *APIError
	if errors.As(e.Err, &apiErr) {
		return fmt.Sprintf("transient: %v", e.Err)
	}
	return fmt.Sprintf("veracode: %s: transient: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() []error { return []error{ErrTransient, e.Err} }

// IsTransient reports whether err, or anything it wraps, is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
