package collection

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for resolution failure modes.
var (
	// ErrNotFound indicates no collection matched the identifier.
	ErrNotFound = errors.New("collection: not found")

	// ErrAmbiguous indicates a name matched more than one collection.
	ErrAmbiguous = errors.New("collection: ambiguous name")

	// ErrNoScanTypes indicates an empty scan-type filter.
	ErrNoScanTypes = errors.New("collection: no scan types requested")
)

// NotFoundError reports an identifier that matched nothing.
type NotFoundError struct {
	Identifier Identifier
}

func (e *NotFoundError) Error() string {
	if e.Identifier.IsGUID() {
		return fmt.Sprintf("no collection with id %s", e.Identifier)
	}
	return fmt.Sprintf("no collection named %q", e.Identifier.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AmbiguousNameError lists every collection sharing a name.
type AmbiguousNameError struct {
	Name  string
	GUIDs []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("%d collections are named %q; rerun with --collectionsid and one of: %s",
		len(e.GUIDs), e.Name, strings.Join(e.GUIDs, ", "))
}

func (e *AmbiguousNameError) Unwrap() error { return ErrAmbiguous }
