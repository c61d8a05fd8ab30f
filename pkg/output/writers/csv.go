package writers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// Compile-time interface check.
var _ Renderer = (*CSVRenderer)(nil)

// Values of the Severity column on summary rows.
const (
	csvTotal   = "TOTAL"
	csvPartial = "PARTIAL"
	csvAll     = "ALL"
)

var csvHeader = []string{"Asset", "Severity", "Count"}

// CSVRenderer writes one row per asset and severity with a non-zero
// count, closes each asset with a summary row and ends with the
// collection totals. Every row has the three header columns:
//
//	Asset,Severity,Count
//	PaymentsApp,HIGH,3
//	PaymentsApp,LOW,1
//	PaymentsApp,TOTAL,4
//	LedgerService,PARTIAL,0
//	TOTAL,VERY_HIGH,0
//	...
//	TOTAL,ALL,4
//
// Partial assets contribute no severity rows.
type CSVRenderer struct {
	// Excel prefixes the output with a UTF-8 BOM.
	Excel bool
}

// UTF-8 BOM for Excel compatibility.
const utf8BOM = "\xEF\xBB\xBF"

// NewCSVRenderer creates a CSV renderer.
func NewCSVRenderer() *CSVRenderer { return &CSVRenderer{} }

func (r *CSVRenderer) Format() string    { return FormatCSV }
func (r *CSVRenderer) Extension() string { return ".csv" }

// Render writes m to w.
func (r *CSVRenderer) Render(w io.Writer, m *report.Model) error {
	if m == nil {
		return renderErr(FormatCSV, fmt.Errorf("nil model"))
	}
	if r.Excel {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return renderErr(FormatCSV, err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return renderErr(FormatCSV, err)
	}
	for _, row := range rows(m) {
		if err := cw.Write(row); err != nil {
			return renderErr(FormatCSV, err)
		}
	}
	cw.Flush()
	return renderErr(FormatCSV, cw.Error())
}

func rows(m *report.Model) [][]string {
	var out [][]string
	for _, e := range m.PerAsset {
		name := sanitizeForCSV(e.Asset.Name)
		if e.Partial {
			out = append(out, []string{name, csvPartial, "0"})
			continue
		}
		totals := e.Totals()
		for _, sev := range totals.NonZero() {
			out = append(out, []string{name, sev.String(), strconv.Itoa(totals.Get(sev))})
		}
		out = append(out, []string{name, csvTotal, strconv.Itoa(totals.Total())})
	}
	for _, sev := range finding.Ordered() {
		out = append(out, []string{csvTotal, sev.String(), strconv.Itoa(m.TotalsBySeverity.Get(sev))})
	}
	return append(out, []string{csvTotal, csvAll, strconv.Itoa(m.TotalsBySeverity.Total())})
}

// sanitizeForCSV prevents CSV injection by prefixing characters that
// spreadsheets treat as the start of a formula.
func sanitizeForCSV(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
