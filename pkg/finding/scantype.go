package finding

import (
	"fmt"
	"slices"
	"strings"
)

// ScanType is a category of analysis performed by the platform.
type ScanType string

const (
	Static  ScanType = "STATIC"
	Dynamic ScanType = "DYNAMIC"
	SCA     ScanType = "SCA"
	Manual  ScanType = "MANUAL"
)

// AllScanTypes returns every scan type in canonical order.
func AllScanTypes() []ScanType {
	return []ScanType{Static, Dynamic, SCA, Manual}
}

// IsValid reports whether t is a known scan type.
func (t ScanType) IsValid() bool {
	return slices.Contains(AllScanTypes(), t)
}

func (t ScanType) String() string { return string(t) }

// Label returns a display name for reports.
func (t ScanType) Label() string {
	switch t {
	case Static:
		return "Static Analysis"
	case Dynamic:
		return "Dynamic Analysis"
	case SCA:
		return "Software Composition Analysis"
	case Manual:
		return "Manual Penetration Testing"
	default:
		return string(t)
	}
}

// ParseScanType parses a scan type name, ignoring case and surrounding space.
func ParseScanType(s string) (ScanType, error) {
	t := ScanType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScanType, s)
	}
	return t, nil
}

// ScanTypeSet is a duplicate-free set of scan types kept in canonical order.
type ScanTypeSet []ScanType

// NewScanTypeSet builds a set from the given types, dropping duplicates.
// Unknown types are rejected.
func NewScanTypeSet(types ...ScanType) (ScanTypeSet, error) {
	var set ScanTypeSet
	for _, t := range types {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScanType, t)
		}
		if !set.Contains(t) {
			set = append(set, t)
		}
	}
	slices.SortFunc(set, func(a, b ScanType) int {
		return slices.Index(AllScanTypes(), a) - slices.Index(AllScanTypes(), b)
	})
	return set, nil
}

// ParseScanTypes parses a comma-separated list. An empty list means all types.
func ParseScanTypes(list string) (ScanTypeSet, error) {
	if strings.TrimSpace(list) == "" {
		return NewScanTypeSet(AllScanTypes()...)
	}
	var types []ScanType
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseScanType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: empty list %q", ErrUnknownScanType, list)
	}
	return NewScanTypeSet(types...)
}

// Contains reports whether t is in the set.
func (s ScanTypeSet) Contains(t ScanType) bool {
	return slices.Contains(s, t)
}

// Strings returns the set members as strings.
func (s ScanTypeSet) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}

func (s ScanTypeSet) String() string {
	return strings.Join(s.Strings(), ",")
}
