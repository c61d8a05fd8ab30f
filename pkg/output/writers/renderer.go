// Package writers renders a report.Model into the supported output formats.
//
// Renderers are stateless with respect to the model: they read it, never
// modify it, and never talk to the platform. Each Render call writes one
// complete document to w.
package writers

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// Supported format names.
const (
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for a format name outside Formats.
var ErrUnknownFormat = errors.New("writers: unknown format")

// Renderer turns a model into one document.
type Renderer interface {
	Format() string
	Extension() string
	Render(w io.Writer, m *report.Model) error
}

// RenderError reports a document that could not be produced.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("writers: render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func renderErr(format string, err error) error {
	if err == nil {
		return nil
	}
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Format: format, Err: err}
}

// Formats returns the supported format names in canonical order.
func Formats() []string {
	return []string{FormatPDF, FormatCSV, FormatJSON}
}

// ForFormat returns the renderer registered for name.
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatPDF:
		return NewPDFRenderer(PDFOptions{}), nil
	case FormatCSV:
		return NewCSVRenderer(), nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
}

// ParseFormats parses a comma-separated format list into renderers,
// dropping duplicates and keeping the requested order.
func ParseFormats(list string) ([]Renderer, error) {
	var (
		out  []Renderer
		seen []string
	)
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || slices.Contains(seen, part) {
			continue
		}
		r, err := ForFormat(part)
		if err != nil {
			return nil, err
		}
		seen = append(seen, part)
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list %q", ErrUnknownFormat, list)
	}
	return out, nil
}
