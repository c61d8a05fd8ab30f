package credentials

import (
	"errors"
	"fmt"
)

// ErrAuthConfig indicates that no usable API credentials were found.
var ErrAuthConfig = errors.New("credentials: authentication not configured")

// AuthConfigError describes why credentials could not be loaded.
type AuthConfigError struct {
	Source string // "environment" or the profile file path
	Reason string
	Err    error
}

func (e *AuthConfigError) Error() string {
	msg := fmt.Sprintf("credentials: %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns both the sentinel and any underlying I/O error.
func (e *AuthConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthConfig}
	}
	return []error{ErrAuthConfig, e.Err}
}
