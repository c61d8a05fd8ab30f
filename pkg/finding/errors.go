package finding

import (
	"errors"
	"fmt"
)

// Sentinel errors for normalization failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrSchema indicates upstream data violated the expected contract:
	// a required field is missing or a value is outside the known vocabulary.
	ErrSchema = errors.New("finding: upstream schema violation")

	// ErrUnknownScanType indicates a scan type name outside
	// STATIC, DYNAMIC, SCA and MANUAL.
	ErrUnknownScanType = errors.New("finding: unknown scan type")

	// ErrUnknownSeverity indicates a severity name outside the canonical enum.
	ErrUnknownSeverity = errors.New("finding: unknown severity")
)

// SchemaError reports upstream contract drift. It is fatal for a run.
type SchemaError struct {
	Resource string // e.g. "findings", "collection"
	Field    string // JSON path of the offending field
	Value    string // offending value, empty when the field was missing
}

func (e *SchemaError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("finding: schema: %s: required field %q missing", e.Resource, e.Field)
	}
	return fmt.Sprintf("finding: schema: %s: field %q has unrecognized value %q", e.Resource, e.Field, e.Value)
}

// Unwrap lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// Missing returns a SchemaError for an absent required field.
func Missing(resource, field string) error {
	return &SchemaError{Resource: resource, Field: field}
}

// Unrecognized returns a SchemaError for a value outside the known vocabulary.
func Unrecognized(resource, field, value string) error {
	return &SchemaError{Resource: resource, Field: field, Value: value}
}
