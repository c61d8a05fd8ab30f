package veracode

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts covers the date formats the platform has been seen to
// emit: RFC 3339 with a Z or colon offset, and ISO 8601 with a bare offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
}

// ParseTimestamp parses a platform date. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("veracode: unrecognized timestamp %q", s)
}
