package writers

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// pdfResult holds a generated PDF and provides structural assertions.
type pdfResult struct {
	t   *testing.T
	raw []byte
}

func generatePDF(t *testing.T, opts PDFOptions, m *report.Model) pdfResult {
	t.Helper()
	r := NewPDFRenderer(opts)
	r.noCompress = true // keep content streams readable so text is searchable
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, m))
	return pdfResult{t: t, raw: buf.Bytes()}
}

func (p pdfResult) assertValid() {
	p.t.Helper()
	assert.NoError(p.t, pdfapi.Validate(bytes.NewReader(p.raw), nil))
}

func (p pdfResult) pageCount() int {
	p.t.Helper()
	n, err := pdfapi.PageCount(bytes.NewReader(p.raw), nil)
	require.NoError(p.t, err)
	return n
}

func (p pdfResult) assertContainsText(text string) {
	p.t.Helper()
	assert.True(p.t, bytes.Contains(p.raw, []byte(text)), "PDF does not contain %q", text)
}

func (p pdfResult) assertNotContainsText(text string) {
	p.t.Helper()
	assert.False(p.t, bytes.Contains(p.raw, []byte(text)), "PDF unexpectedly contains %q", text)
}

func TestPDF_EmptyModel(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, PDFOptions{}, emptyModel(t))
	p.assertValid()
	assert.True(t, bytes.HasPrefix(p.raw, []byte("%PDF-")))
	// Cover, summary, policy evaluation and asset details.
	assert.Equal(t, 4, p.pageCount())
	p.assertContainsText("This collection has no member assets.")
	p.assertContainsText("No assets were reported.")
}

func TestPDF_PaymentsScenario(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, PDFOptions{}, paymentsModel(t))
	p.assertValid()

	// fpdf escapes parentheses inside string literals.
	p.assertContainsText("Veracode Collection Report")
	p.assertContainsText("Pat Example")
	p.assertContainsText("March 14, 2026")
	p.assertContainsText(sectionSummary)
	p.assertContainsText(sectionEvaluation)
	p.assertContainsText(sectionDetails)
	p.assertContainsText(`Did Not Pass \(1\)`)
	p.assertContainsText(`Not Assessed \(1\)`)
	p.assertContainsText("Incomplete Assets")
	p.assertContainsText("Findings could not be retrieved")
	p.assertContainsText("Cross-site Scripting")
	p.assertContainsText("CWE-79")
	p.assertContainsText("Not Scanned")
	p.assertNotContainsText(`Conditional Pass \(`)
}

func TestPDF_IncompleteFindingList(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	m.PerAsset[0].FindingsIncomplete = true
	m.PerAsset[0].Error = "STATIC findings: 503"
	p := generatePDF(t, PDFOptions{}, m)
	p.assertValid()
	p.assertContainsText("Incomplete Finding Lists")
	p.assertContainsText("The finding list below is incomplete")
	p.assertContainsText("Incomplete Assets")
}

func TestPDF_CustomTitle(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, PDFOptions{Title: "Quarterly Review"}, emptyModel(t))
	p.assertValid()
	p.assertContainsText("Quarterly Review")
	p.assertNotContainsText("Veracode Collection Report")
}

func TestPDF_AssetsRankedBySeverityWeight(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	// A lighter asset whose name sorts first must still follow PaymentsApp.
	desc := m.Collection
	desc.Members = append(desc.Members, collection.AssetRef{ID: "c3", Name: "Aardvark"})
	entries := append([]report.AssetReport{}, m.PerAsset...)
	var c finding.Counts
	c[finding.Informational] = 1
	entries = append(entries, report.AssetReport{
		Asset: desc.Members[2],
		Summaries: []report.ScanSummary{{
			AssetID: "c3", ScanType: finding.Static, Counts: c,
		}},
	})
	m2, err := report.Build(m.RunID, desc, m.ScanTypes, entries, m.GeneratedAt, m.PreparedBy)
	require.NoError(t, err)

	p := generatePDF(t, PDFOptions{}, m2)
	p.assertValid()
	details := bytes.LastIndex(p.raw, []byte(sectionDetails))
	require.Positive(t, details)
	rest := p.raw[details:]
	assert.Less(t, bytes.Index(rest, []byte("(PaymentsApp)")), bytes.Index(rest, []byte("(Aardvark)")))
}

func TestPDF_FindingsCap(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	p := generatePDF(t, PDFOptions{MaxFindings: 2}, m)
	p.assertValid()
	p.assertContainsText("2 more findings not shown.")
}

func TestPDF_ManyFindingsPaginate(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	e := &m.PerAsset[0]
	var c finding.Counts
	for i := range 120 {
		e.Findings = append(e.Findings, mkFinding("a1", 100+i, finding.Medium, 200+i, fmt.Sprintf("Generated finding %03d", i)))
		c[finding.Medium]++
	}
	e.Summaries[0].Counts = e.Summaries[0].Counts.Add(c)
	m.TotalsBySeverity = m.TotalsBySeverity.Add(c)
	require.NoError(t, m.Validate())

	p := generatePDF(t, PDFOptions{MaxFindings: -1}, m)
	p.assertValid()
	assert.Greater(t, p.pageCount(), 5)
	p.assertContainsText("Generated finding 119")
}

func TestPDF_NonASCIINames(t *testing.T) {
	t.Parallel()
	m := emptyModel(t)
	m.Collection.Name = "Zahlungsdienste München"
	m.Collection.Description = "Équipe paiements"
	p := generatePDF(t, PDFOptions{}, m)
	p.assertValid()
}

func TestPDF_Deterministic(t *testing.T) {
	t.Parallel()
	m := paymentsModel(t)
	a := generatePDF(t, PDFOptions{}, m)
	b := generatePDF(t, PDFOptions{}, m)
	assert.Equal(t, a.raw, b.raw)
}

func TestPDFSeverityColors(t *testing.T) {
	t.Parallel()
	for _, sev := range finding.Ordered() {
		color, ok := pdfSeverityColors[sev]
		require.True(t, ok, "missing severity color for %s", sev)
		require.Len(t, color, 3)
		for i, c := range color {
			assert.True(t, c >= 0 && c <= 255, "severity color %s component %d out of range: %d", sev, i, c)
		}
	}
}

func TestScanDateText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Not Scanned", scanDateText(time.Time{}))
	assert.Equal(t, "03-14-2026 09:30", scanDateText(testGenerated))
}

func TestRulesText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Passed", rulesText(collection.AssetRef{PassedRules: true}))
	assert.Equal(t, "Within Grace Period", rulesText(collection.AssetRef{InGracePeriod: true}))
	assert.Equal(t, "Did Not Pass", rulesText(collection.AssetRef{}))
}
