// Package output writes rendered reports to disk.
//
// File names come from a text/template pattern with the sprig function
// library. Every document is rendered into memory first and then moved
// into place with an atomic rename, so an interrupted or failed run never
// leaves a truncated report behind.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/Masterminds/sprig/v3"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// ErrFileName indicates a file name template that cannot be used.
var ErrFileName = errors.New("output: invalid file name template")

// NameData is the value a file name template is executed against.
type NameData struct {
	Name      string    // collection name
	ID        string    // collection GUID
	RunID     string    // aggregation run id
	Generated time.Time // model generation time
}

// NameDataFor extracts the template fields from m.
func NameDataFor(m *report.Model) NameData {
	return NameData{
		Name:      m.Collection.Name,
		ID:        m.Collection.ID,
		RunID:     m.RunID,
		Generated: m.GeneratedAt,
	}
}

// NameTemplate is a parsed file name pattern.
type NameTemplate struct {
	tmpl *template.Template
}

// ParseNameTemplate parses pattern. An empty pattern selects
// defaults.FileNameTemplate.
func ParseNameTemplate(pattern string) (*NameTemplate, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = defaults.FileNameTemplate
	}
	tmpl, err := template.New("filename").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileName, err)
	}
	return &NameTemplate{tmpl: tmpl}, nil
}

// Base executes the template and returns a file-system safe base name
// without extension.
func (n *NameTemplate) Base(data NameData) (string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileName, err)
	}
	name := SanitizeFileName(buf.String())
	if name == "" {
		return "", fmt.Errorf("%w: pattern produced an empty name", ErrFileName)
	}
	return name, nil
}

// maxBaseLen keeps names well under common file system limits once the
// extension and temp suffix are added.
const maxBaseLen = 200

// SanitizeFileName replaces characters that are reserved on common file
// systems and trims leading and trailing dots and spaces.
func SanitizeFileName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.Trim(out, ". ")
	if len(out) > maxBaseLen {
		out = strings.ToValidUTF8(out[:maxBaseLen], "")
		out = strings.TrimRight(out, ". ")
	}
	return out
}
