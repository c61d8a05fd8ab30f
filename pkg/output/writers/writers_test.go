package writers

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/testutil"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

var testGenerated = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func staticOnly(t *testing.T) finding.ScanTypeSet {
	t.Helper()
	set, err := finding.NewScanTypeSet(finding.Static)
	require.NoError(t, err)
	return set
}

func mkFinding(asset string, issue int, sev finding.Severity, cwe int, title string) finding.Finding {
	return finding.Finding{
		AssetID:        asset,
		ScanType:       finding.Static,
		IssueID:        issue,
		Severity:       sev,
		CWEID:          cwe,
		Title:          title,
		Status:         finding.StatusOpen,
		ViolatesPolicy: sev >= finding.Medium,
		Fingerprint:    finding.Fingerprint(asset, finding.Static, cwe, "", title),
	}
}

// paymentsModel is the two-asset scenario: PaymentsApp has three HIGH and
// one LOW static finding, LedgerService could not be fetched.
func paymentsModel(t *testing.T) *report.Model {
	t.Helper()
	desc := collection.Descriptor{
		ID:               "0f3b2c4e-7a1d-4a57-9b0e-3c2f1d8e6a90",
		Name:             "Payments",
		Description:      "Card processing services",
		ComplianceStatus: veracode.ComplianceDidNotPass,
		ComplianceOverview: veracode.ComplianceOverview{
			NotPassingPolicy: 1,
			NotAssessed:      1,
		},
		Members: []collection.AssetRef{
			{
				ID:           "a1",
				Name:         "PaymentsApp",
				PolicyStatus: veracode.ComplianceDidNotPass,
				LastScan:     testGenerated.Add(-48 * time.Hour),
			},
			{ID: "b2", Name: "LedgerService", PolicyStatus: veracode.ComplianceNotAssessed},
		},
	}
	var c finding.Counts
	c[finding.High] = 3
	c[finding.Low] = 1
	entries := []report.AssetReport{
		{
			Asset: desc.Members[0],
			Summaries: []report.ScanSummary{{
				AssetID:      "a1",
				ScanType:     finding.Static,
				LastScanDate: testGenerated.Add(-48 * time.Hour),
				Counts:       c,
			}},
			Findings: []finding.Finding{
				mkFinding("a1", 11, finding.High, 89, "Improper Neutralization of Special Elements used in an SQL Command"),
				mkFinding("a1", 12, finding.High, 79, "Cross-site Scripting"),
				mkFinding("a1", 13, finding.High, 22, "Path Traversal"),
				mkFinding("a1", 14, finding.Low, 117, "Improper Output Neutralization for Logs"),
			},
		},
		{Asset: desc.Members[1], Partial: true, Error: "gave up after 3 attempts: 503 Service Unavailable"},
	}
	m, err := report.Build("run-1", desc, staticOnly(t), entries, testGenerated, "Pat Example")
	require.NoError(t, err)
	return m
}

func emptyModel(t *testing.T) *report.Model {
	t.Helper()
	desc := collection.Descriptor{ID: "e0", Name: "Empty", ComplianceStatus: veracode.ComplianceNotAssessed}
	m, err := report.Build("run-empty", desc, staticOnly(t), nil, testGenerated, "")
	require.NoError(t, err)
	return m
}

func TestForFormat(t *testing.T) {
	t.Parallel()
	for _, name := range Formats() {
		r, err := ForFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, r.Format())
		assert.Equal(t, "."+name, r.Extension())
	}

	_, err := ForFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{in: "pdf", want: []string{"pdf"}},
		{in: "csv, JSON", want: []string{"csv", "json"}},
		{in: "json,json,pdf", want: []string{"json", "pdf"}},
		{in: "", wantErr: true},
		{in: "pdf,html", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFormats(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Format())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRenderers_EmptyModelIsValid(t *testing.T) {
	t.Parallel()
	m := emptyModel(t)
	for _, name := range Formats() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r, err := ForFormat(name)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, m))
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestRenderers_DoNotMutateModel(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	before, err := jsonBytes(m)
	require.NoError(t, err)
	for _, name := range Formats() {
		r, err := ForFormat(name)
		require.NoError(t, err)
		require.NoError(t, r.Render(&bytes.Buffer{}, m))
	}
	after, err := jsonBytes(m)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRenderers_WriteFailureIsRenderError(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	for _, name := range Formats() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r, err := ForFormat(name)
			require.NoError(t, err)
			err = r.Render(&testutil.FailingWriter{}, m)
			var re *RenderError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, name, re.Format)
			assert.ErrorIs(t, err, testutil.ErrFault)
		})
		t.Run(name+"/short write", func(t *testing.T) {
			t.Parallel()
			r, err := ForFormat(name)
			require.NoError(t, err)
			w := &testutil.FailingWriter{Limit: 64}
			assert.ErrorIs(t, r.Render(w, m), testutil.ErrFault)
			assert.LessOrEqual(t, w.Written(), 64)
		})
	}
}

func TestRenderers_NilModel(t *testing.T) {
	t.Parallel()
	for _, name := range Formats() {
		r, err := ForFormat(name)
		require.NoError(t, err)
		var re *RenderError
		assert.True(t, errors.As(r.Render(&bytes.Buffer{}, nil), &re), name)
	}
}

func jsonBytes(m *report.Model) ([]byte, error) {
	var buf bytes.Buffer
	err := NewJSONRenderer().Render(&buf, m)
	return buf.Bytes(), err
}
