package finding

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/jsonutil"
)

// Counts is a per-severity tally indexed by Severity.
// The zero value is a valid all-zero tally.
type Counts [NumSeverities]int

// Get returns the count for s.
func (c Counts) Get(s Severity) int {
	if !s.IsValid() {
		return 0
	}
	return c[s]
}

// Add returns the element-wise sum of c and other.
func (c Counts) Add(other Counts) Counts {
	for i := range c {
		c[i] += other[i]
	}
	return c
}

// Total returns the sum across all severities.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Weight returns the severity-weighted total used to rank assets:
// each finding contributes its severity's Weight.
func (c Counts) Weight() int {
	w := 0
	for i, n := range c {
		w += n * Severity(i).Weight()
	}
	return w
}

// IsZero reports whether every count is zero.
func (c Counts) IsZero() bool { return c.Total() == 0 }

// NonZero returns the severities with a positive count, most severe first.
func (c Counts) NonZero() []Severity {
	var out []Severity
	for _, s := range Ordered() {
		if c[s] > 0 {
			out = append(out, s)
		}
	}
	return out
}

// MarshalJSON writes every severity as a key, most severe first, so the
// encoding is stable and zero buckets stay visible.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range Ordered() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(s.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c[s]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by severity name. Missing keys count
// as zero; unknown keys are an error.
func (c *Counts) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := jsonutil.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("finding: counts: %w", err)
	}
	var out Counts
	for name, n := range raw {
		s, err := ParseSeverity(name)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("finding: counts: negative count %d for %s", n, name)
		}
		out[s] = n
	}
	*c = out
	return nil
}
