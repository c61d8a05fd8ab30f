package writers

import (
	"fmt"
	"io"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/jsonutil"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// Compile-time interface check.
var _ Renderer = (*JSONRenderer)(nil)

// JSONRenderer writes the model as one indented JSON document. Severities
// are encoded by name and timestamps in RFC 3339.
type JSONRenderer struct {
	indent string
}

// NewJSONRenderer creates a JSON renderer with two-space indentation.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{indent: "  "}
}

func (r *JSONRenderer) Format() string    { return FormatJSON }
func (r *JSONRenderer) Extension() string { return ".json" }

// Render writes m to w.
func (r *JSONRenderer) Render(w io.Writer, m *report.Model) error {
	if m == nil {
		return renderErr(FormatJSON, fmt.Errorf("nil model"))
	}
	if err := jsonutil.MarshalWrite(w, m, r.indent); err != nil {
		return renderErr(FormatJSON, err)
	}
	return nil
}

// DecodeJSON parses a document produced by JSONRenderer and checks the
// model invariants.
func DecodeJSON(rd io.Reader) (*report.Model, error) {
	var m report.Model
	if err := jsonutil.UnmarshalRead(rd, &m); err != nil {
		return nil, fmt.Errorf("writers: decode json: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("writers: decode json: %w", err)
	}
	return &m, nil
}
