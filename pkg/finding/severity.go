package finding

import (
	"fmt"
	"strings"
)

// Severity is the canonical, ordered criticality of a finding.
// The numeric value equals the platform severity level (0..5), so
// comparison operators follow criticality: VeryHigh > High > ... > Informational.
type Severity int

const (
	// Informational findings carry no direct security impact.
	Informational Severity = iota
	// VeryLow findings are best-practice deviations.
	VeryLow
	// Low findings have limited impact.
	Low
	// Medium findings have moderate impact.
	Medium
	// High findings require prompt remediation.
	High
	// VeryHigh findings allow immediate compromise.
	VeryHigh
)

// NumSeverities is the size of the severity enum.
const NumSeverities = 6

var severityNames = [NumSeverities]string{
	Informational: "INFORMATIONAL",
	VeryLow:       "VERY_LOW",
	Low:           "LOW",
	Medium:        "MEDIUM",
	High:          "HIGH",
	VeryHigh:      "VERY_HIGH",
}

var severityLabels = [NumSeverities]string{
	Informational: "Informational",
	VeryLow:       "Very Low",
	Low:           "Low",
	Medium:        "Medium",
	High:          "High",
	VeryHigh:      "Very High",
}

// Ordered returns all severities, most severe first.
func Ordered() []Severity {
	return []Severity{VeryHigh, High, Medium, Low, VeryLow, Informational}
}

// IsValid reports whether s is a member of the enum.
func (s Severity) IsValid() bool {
	return s >= Informational && s <= VeryHigh
}

// Level returns the platform numeric level (0..5).
func (s Severity) Level() int { return int(s) }

// Weight returns the sort weight: the ordinal position counted from the
// least severe end, so Informational=1 and VeryHigh=6.
func (s Severity) Weight() int { return int(s) + 1 }

// String returns the canonical upper-snake name, e.g. "VERY_HIGH".
func (s Severity) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// Label returns the human-readable name, e.g. "Very High".
func (s Severity) Label() string {
	if !s.IsValid() {
		return "Unknown"
	}
	return severityLabels[s]
}

// MarshalText encodes the severity as its canonical name.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText decodes a canonical severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses a canonical name ("VERY_HIGH") or label ("Very High").
// Matching ignores case.
func ParseSeverity(name string) (Severity, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	for i, candidate := range severityNames {
		if n == candidate {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}
