package writers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// Compile-time interface check.
var _ Renderer = (*PDFRenderer)(nil)

// PDFOptions configures the PDF renderer.
type PDFOptions struct {
	// Title heads the cover page and the running header.
	// Defaults to defaults.ReportTitle.
	Title string

	// MaxFindings caps the findings table of each asset. The remainder is
	// summarized in one line. Zero means 250; negative means unlimited.
	MaxFindings int
}

// PDFRenderer lays the model out as a multi-section PDF document:
// cover page, executive summary, asset policy evaluation and one detail
// section per asset. The document is validated with pdfcpu before any
// byte reaches the destination writer.
type PDFRenderer struct {
	opts       PDFOptions
	noCompress bool
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(opts PDFOptions) *PDFRenderer {
	if opts.Title == "" {
		opts.Title = defaults.ReportTitle
	}
	if opts.MaxFindings == 0 {
		opts.MaxFindings = 250
	}
	return &PDFRenderer{opts: opts}
}

func (r *PDFRenderer) Format() string    { return FormatPDF }
func (r *PDFRenderer) Extension() string { return ".pdf" }

// Page geometry in millimetres (A4 portrait).
const (
	pdfMargin     = 15.0
	pdfContentW   = 210.0 - 2*pdfMargin
	pdfRowH       = 7.0
	pdfFooterSkip = 20.0
)

// Header fill shared by every table.
var pdfHeaderFill = []int{30, 41, 59}

// pdfSeverityColors maps severities to their badge colors.
var pdfSeverityColors = map[finding.Severity][]int{
	finding.VeryHigh:      {153, 27, 27},
	finding.High:          {220, 38, 38},
	finding.Medium:        {234, 88, 12},
	finding.Low:           {202, 138, 4},
	finding.VeryLow:       {37, 99, 235},
	finding.Informational: {100, 116, 139},
}

// Render writes m to w as PDF.
func (r *PDFRenderer) Render(w io.Writer, m *report.Model) error {
	if m == nil {
		return renderErr(FormatPDF, fmt.Errorf("nil model"))
	}
	raw, err := r.build(m)
	if err != nil {
		return renderErr(FormatPDF, err)
	}
	if err := pdfapi.Validate(bytes.NewReader(raw), nil); err != nil {
		return renderErr(FormatPDF, fmt.Errorf("validate: %w", err))
	}
	if _, err := w.Write(raw); err != nil {
		return renderErr(FormatPDF, err)
	}
	return nil
}

func (r *PDFRenderer) build(m *report.Model) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfFooterSkip)
	pdf.SetCompression(!r.noCompress)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	pdf.SetTitle(r.opts.Title+" - "+m.Collection.Name, true)
	if m.PreparedBy != "" {
		pdf.SetAuthor(m.PreparedBy, true)
	}
	if !m.GeneratedAt.IsZero() {
		pdf.SetCreationDate(m.GeneratedAt)
		pdf.SetModificationDate(m.GeneratedAt)
	}
	pdf.SetCatalogSort(true)
	pdf.AliasNbPages("")

	d := &pdfDoc{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		m:    m,
		opts: r.opts,
	}
	pdf.SetHeaderFunc(d.header)
	pdf.SetFooterFunc(d.footer)

	d.addCoverPage()
	d.addExecutiveSummary()
	d.addPolicyEvaluation()
	d.addAssetDetails()

	if pdf.Err() {
		return nil, fmt.Errorf("layout: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfDoc carries the state of one render.
type pdfDoc struct {
	pdf  *gofpdf.Fpdf
	tr   func(string) string
	m    *report.Model
	opts PDFOptions
}

func (d *pdfDoc) header() {
	pdf := d.pdf
	if pdf.PageNo() == 1 {
		return
	}
	pdf.SetY(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(100, 116, 139)
	pdf.CellFormat(pdfContentW/2, 5, d.tr(d.opts.Title), "", 0, "L", false, 0, "")
	pdf.CellFormat(pdfContentW/2, 5, d.tr(d.m.Collection.Name), "", 1, "R", false, 0, "")
	pdf.SetDrawColor(226, 232, 240)
	pdf.Line(pdfMargin, 14, pdfMargin+pdfContentW, 14)
	pdf.SetY(pdfMargin + 3)
}

func (d *pdfDoc) footer() {
	pdf := d.pdf
	pdf.SetY(-15)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(100, 116, 139)
	generated := ""
	if !d.m.GeneratedAt.IsZero() {
		generated = "Generated " + d.m.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")
	}
	pdf.CellFormat(pdfContentW/2, 10, generated, "", 0, "L", false, 0, "")
	pdf.CellFormat(pdfContentW/2, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
}

// addSectionHeader draws a section title with an underline rule.
func (d *pdfDoc) addSectionHeader(title string) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, d.tr(title), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(37, 99, 235)
	pdf.SetLineWidth(0.6)
	y := pdf.GetY()
	pdf.Line(pdfMargin, y, pdfMargin+pdfContentW, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)
}

func (d *pdfDoc) addSubHeader(title string) {
	pdf := d.pdf
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, d.tr(title), "", 1, "L", false, 0, "")
}

func (d *pdfDoc) addParagraph(text string) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
	pdf.Ln(2)
}

// tableHeader draws a header row. widths and labels must be the same length.
func (d *pdfDoc) tableHeader(widths []float64, labels []string) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(203, 213, 225)
	for i, label := range labels {
		pdf.CellFormat(widths[i], pdfRowH, d.tr(label), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

// tableRow draws one body row with alternating fill. Cells wider than their
// column are shortened with an ellipsis.
func (d *pdfDoc) tableRow(index int, widths []float64, cells []string) {
	pdf := d.pdf
	if d.needsBreak(pdfRowH) {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	if index%2 == 0 {
		pdf.SetFillColor(250, 250, 250)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	for i, cell := range cells {
		pdf.CellFormat(widths[i], pdfRowH, d.fit(cell, widths[i]-2), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

// severityCell draws a colored severity label in the current row.
func (d *pdfDoc) severityCell(w float64, sev finding.Severity, fill bool) {
	pdf := d.pdf
	c := pdfSeverityColors[sev]
	if c == nil {
		c = []int{128, 128, 128}
	}
	pdf.SetTextColor(c[0], c[1], c[2])
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(w, pdfRowH, sev.Label(), "1", 0, "L", fill, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

func (d *pdfDoc) needsBreak(h float64) bool {
	_, pageH := d.pdf.GetPageSize()
	return d.pdf.GetY()+h > pageH-pdfFooterSkip
}

// fit translates s to the document code page and shortens it to width w.
func (d *pdfDoc) fit(s string, w float64) string {
	s = d.tr(strings.TrimSpace(s))
	if d.pdf.GetStringWidth(s) <= w {
		return s
	}
	const ellipsis = "..."
	// Translated text is single-byte, so byte slicing is safe.
	for len(s) > 0 && d.pdf.GetStringWidth(s+ellipsis) > w {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}
