package writers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// Section titles, also listed on the cover page.
const (
	sectionSummary    = "Executive Summary"
	sectionEvaluation = "Asset Policy Evaluation"
	sectionDetails    = "Asset Details"
)

// policyGroups is the order in which compliance groups are presented.
var policyGroups = []string{
	veracode.ComplianceDidNotPass,
	veracode.ComplianceConditional,
	veracode.CompliancePassed,
	veracode.ComplianceNotAssessed,
}

// collectionStatusText explains a collection compliance status.
func collectionStatusText(status string) string {
	switch strings.ToUpper(status) {
	case veracode.ComplianceDidNotPass:
		return "One or more assets in this collection did not pass policy."
	case veracode.ComplianceConditional:
		return "Assets in this collection have policy violations that are still within the remediation grace period."
	case veracode.CompliancePassed:
		return "All assessed assets in this collection passed policy."
	default:
		return "The assets in this collection have not been assessed against policy."
	}
}

// groupText explains what the assets of a compliance group have in common.
func groupText(status string) string {
	switch status {
	case veracode.ComplianceDidNotPass:
		return "These assets have findings that violate policy rules and exceeded the remediation grace period, " +
			"or they have not been scanned at the required frequency."
	case veracode.ComplianceConditional:
		return "These assets have findings that violate policy rules but are within the remediation grace period, " +
			"and they have been scanned at the required frequency."
	case veracode.CompliancePassed:
		return "These assets passed all aspects of the policy, including rules and required scans."
	default:
		return "These assets have not been scanned."
	}
}

func rulesText(a collection.AssetRef) string {
	switch {
	case a.PassedRules:
		return "Passed"
	case a.InGracePeriod:
		return "Within Grace Period"
	default:
		return "Did Not Pass"
	}
}

func passedText(ok bool) string {
	if ok {
		return "Passed"
	}
	return "Did Not Pass"
}

func scanDateText(t time.Time) string {
	if t.IsZero() {
		return "Not Scanned"
	}
	return t.UTC().Format("01-02-2006 15:04")
}

// addCoverPage renders the title page. The running header is suppressed
// on page one.
func (d *pdfDoc) addCoverPage() {
	pdf := d.pdf
	pdf.AddPage()

	pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
	pdf.Rect(0, 0, 210, 90, "F")

	pdf.SetY(35)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 12, d.tr(d.opts.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(203, 213, 225)
	pdf.CellFormat(0, 10, d.fit(d.m.Collection.Name, pdfContentW), "", 1, "L", false, 0, "")

	pdf.SetY(110)
	pdf.SetTextColor(30, 41, 59)
	rows := [][2]string{
		{"Prepared by", orDash(d.m.PreparedBy)},
		{"Date", d.dateText()},
		{"Scan types", scanTypesText(d.m.ScanTypes)},
		{"Run ID", orDash(d.m.RunID)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, d.fit(row[1], pdfContentW-40), "", 1, "L", false, 0, "")
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Contents", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for i, s := range []string{sectionSummary, sectionEvaluation, sectionDetails} {
		pdf.CellFormat(0, 7, fmt.Sprintf("%d. %s", i+1, s), "", 1, "L", false, 0, "")
	}
}

func (d *pdfDoc) dateText() string {
	if d.m.GeneratedAt.IsZero() {
		return "-"
	}
	return d.m.GeneratedAt.Format("January 2, 2006")
}

func (d *pdfDoc) addExecutiveSummary() {
	pdf := d.pdf
	c := d.m.Collection
	pdf.AddPage()
	d.addSectionHeader(sectionSummary)

	widths := []float64{50, pdfContentW - 50}
	info := [][]string{
		{"Collection", c.Name},
		{"Collection ID", c.ID},
		{"Status", veracode.ComplianceTitle(c.ComplianceStatus)},
		{"Assets", strconv.Itoa(len(c.Members))},
		{"Scan Types", scanTypesText(d.m.ScanTypes)},
	}
	for i, row := range info {
		d.tableRow(i, widths, row)
	}
	pdf.Ln(3)
	d.addParagraph(collectionStatusText(c.ComplianceStatus))
	if strings.TrimSpace(c.Description) != "" {
		d.addSubHeader("Collection Description")
		d.addParagraph(c.Description)
	}

	d.addSubHeader("Compliance Overview")
	ov := c.ComplianceOverview
	cw := []float64{90, 40}
	d.tableHeader(cw, []string{"Policy Status", "Assets"})
	for i, row := range [][]string{
		{"Did Not Pass", strconv.Itoa(ov.NotPassingPolicy)},
		{"Conditional Pass", strconv.Itoa(ov.ConditionallyPassingPolicy)},
		{"Passed", strconv.Itoa(ov.PassingPolicy)},
		{"Not Assessed", strconv.Itoa(ov.NotAssessed)},
	} {
		d.tableRow(i, cw, row)
	}

	d.addSubHeader("Findings by Severity")
	d.addSeverityTotals(d.m.TotalsBySeverity)

	if partial := d.m.PartialAssets(); len(partial) > 0 {
		d.addSubHeader("Incomplete Assets")
		d.addDegraded("Findings for the following assets could not be retrieved. "+
			"The totals above do not include them.", partial)
	}
	if incomplete := d.m.IncompleteAssets(); len(incomplete) > 0 {
		d.addSubHeader("Incomplete Finding Lists")
		d.addDegraded("The finding lists of the following assets stopped early. "+
			"Their platform totals are still counted above.", incomplete)
	}
}

func (d *pdfDoc) addDegraded(note string, entries []report.AssetReport) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(185, 28, 28)
	pdf.MultiCell(0, 5, note, "", "L", false)
	pdf.Ln(2)
	ew := []float64{60, pdfContentW - 60}
	d.tableHeader(ew, []string{"Asset", "Error"})
	for i, e := range entries {
		d.tableRow(i, ew, []string{e.Asset.Name, e.Error})
	}
}

// addSeverityTotals renders one row of counts, most severe first, plus a
// total column.
func (d *pdfDoc) addSeverityTotals(c finding.Counts) {
	pdf := d.pdf
	sevs := finding.Ordered()
	w := pdfContentW / float64(len(sevs)+1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetDrawColor(203, 213, 225)
	for _, sev := range sevs {
		col := pdfSeverityColors[sev]
		pdf.SetFillColor(col[0], col[1], col[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(w, pdfRowH, sev.Label(), "1", 0, "C", true, 0, "")
	}
	pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
	pdf.CellFormat(w, pdfRowH, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(30, 30, 30)
	for _, sev := range sevs {
		pdf.CellFormat(w, pdfRowH, strconv.Itoa(c.Get(sev)), "1", 0, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w, pdfRowH, strconv.Itoa(c.Total()), "1", 1, "C", false, 0, "")
	pdf.Ln(2)
}

// addPolicyEvaluation groups members by compliance status.
func (d *pdfDoc) addPolicyEvaluation() {
	pdf := d.pdf
	pdf.AddPage()
	d.addSectionHeader(sectionEvaluation)

	if len(d.m.Collection.Members) == 0 {
		d.addParagraph("This collection has no member assets.")
		return
	}
	widths := []float64{64, 40, 36, 40}
	for _, status := range policyGroups {
		members := d.m.Collection.MembersByStatus(status)
		if status == veracode.ComplianceNotAssessed {
			members = append(members, d.m.Collection.MembersByStatus("")...)
		}
		if len(members) == 0 {
			continue
		}
		if d.needsBreak(40) {
			pdf.AddPage()
		}
		d.addSubHeader(fmt.Sprintf("%s (%d)", veracode.ComplianceTitle(status), len(members)))
		d.addParagraph(groupText(status))
		d.tableHeader(widths, []string{"Asset", "Rules", "Scan Requirements", "Last Scan Date"})
		for i, a := range members {
			d.tableRow(i, widths, []string{a.Name, rulesText(a), passedText(a.PassedScanRequirements), scanDateText(a.LastScan)})
		}
		pdf.Ln(4)
	}
}

// addAssetDetails renders one block per asset, highest severity weight
// first.
func (d *pdfDoc) addAssetDetails() {
	pdf := d.pdf
	pdf.AddPage()
	d.addSectionHeader(sectionDetails)

	ranked := d.m.Ranked()
	if len(ranked) == 0 {
		d.addParagraph("No assets were reported.")
		return
	}
	for i, e := range ranked {
		if i > 0 && d.needsBreak(60) {
			pdf.AddPage()
		}
		d.addAsset(e)
	}
}

func (d *pdfDoc) addAsset(e report.AssetReport) {
	pdf := d.pdf
	d.addSubHeader(e.Asset.Name)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 116, 139)
	pdf.CellFormat(0, 5, d.fit(fmt.Sprintf("Policy: %s   Last scan: %s   ID: %s",
		veracode.ComplianceTitle(e.Asset.PolicyStatus), scanDateText(e.Asset.LastScan), e.Asset.ID), pdfContentW),
		"", 1, "L", false, 0, "")
	pdf.Ln(2)

	if e.Partial {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(185, 28, 28)
		pdf.MultiCell(0, 5, d.tr("Findings could not be retrieved: "+orDash(e.Error)), "", "L", false)
		pdf.Ln(4)
		return
	}
	if len(e.Summaries) == 0 {
		d.addParagraph("None of the requested scan types have been run on this asset.")
		return
	}

	sevs := finding.Ordered()
	sevW := (pdfContentW - 70) / float64(len(sevs))
	widths := []float64{40, 30}
	labels := []string{"Scan Type", "Last Scan"}
	for _, sev := range sevs {
		widths = append(widths, sevW)
		labels = append(labels, sev.Label())
	}
	d.tableHeader(widths, labels)
	for i, s := range e.Summaries {
		row := []string{s.ScanType.String(), scanDateText(s.LastScanDate)}
		for _, sev := range sevs {
			row = append(row, strconv.Itoa(s.Counts.Get(sev)))
		}
		d.tableRow(i, widths, row)
	}
	pdf.Ln(3)

	if e.FindingsIncomplete {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(185, 28, 28)
		pdf.MultiCell(0, 5, d.tr("The finding list below is incomplete: "+orDash(e.Error)), "", "L", false)
		pdf.Ln(2)
	}
	if len(e.Findings) == 0 {
		d.addParagraph("No findings were reported for the requested scan types.")
		return
	}
	d.addFindings(e.Findings)
	pdf.Ln(4)
}

func (d *pdfDoc) addFindings(findings []finding.Finding) {
	pdf := d.pdf
	titleCase := cases.Title(language.English)
	widths := []float64{24, 20, 20, 86, 30}
	d.tableHeader(widths, []string{"Severity", "Scan", "CWE", "Title", "Status"})

	shown := findings
	if d.opts.MaxFindings > 0 && len(shown) > d.opts.MaxFindings {
		shown = shown[:d.opts.MaxFindings]
	}
	for i, f := range shown {
		if d.needsBreak(pdfRowH) {
			pdf.AddPage()
			d.tableHeader(widths, []string{"Severity", "Scan", "CWE", "Title", "Status"})
		}
		fill := i%2 == 0
		if fill {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		d.severityCell(widths[0], f.Severity, fill)
		pdf.CellFormat(widths[1], pdfRowH, f.ScanType.String(), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], pdfRowH, orDash(f.CWE()), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[3], pdfRowH, d.fit(f.Title, widths[3]-2), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[4], pdfRowH, titleCase.String(string(f.Status)), "1", 1, "L", fill, 0, "")
	}
	if rest := len(findings) - len(shown); rest > 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d more findings not shown.", rest), "", 1, "L", false, 0, "")
	}
}

func scanTypesText(set finding.ScanTypeSet) string {
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set.Strings(), ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
