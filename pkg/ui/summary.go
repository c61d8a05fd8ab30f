package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// PrintRunSummary prints the collection status, per-severity totals and
// the assets with missing data.
func PrintRunSummary(m *report.Model) {
	w := output()
	PrintSection("Collection " + m.Collection.Name)

	status := m.Collection.ComplianceStatus
	fmt.Fprintf(w, "  %-16s %s\n", StatLabelStyle.Render("Status"),
		ComplianceStyle(status).Render(veracode.ComplianceTitle(status)))
	fmt.Fprintf(w, "  %-16s %s\n", StatLabelStyle.Render("Assets"),
		StatValueStyle.Render(strconv.Itoa(len(m.PerAsset))))
	fmt.Fprintf(w, "  %-16s %s\n", StatLabelStyle.Render("Findings"),
		StatValueStyle.Render(strconv.Itoa(m.TotalsBySeverity.Total())))
	if listed := m.FindingCount(); listed != m.TotalsBySeverity.Total() {
		fmt.Fprintf(w, "  %-16s %s\n", StatLabelStyle.Render("Listed"),
			StatValueStyle.Render(strconv.Itoa(listed)))
	}
	fmt.Fprintln(w)

	for _, sev := range finding.Ordered() {
		fmt.Fprintf(w, "  %-16s %6d\n", SeverityStyle(sev).Render(sev.Label()), m.TotalsBySeverity.Get(sev))
	}

	if partial := m.PartialAssets(); len(partial) > 0 {
		fmt.Fprintln(w)
		PrintWarning(fmt.Sprintf("%d of %d assets could not be fetched and are missing from the totals:", len(partial), len(m.PerAsset)))
		printAssetErrors(w, partial)
	}
	if incomplete := m.IncompleteAssets(); len(incomplete) > 0 {
		fmt.Fprintln(w)
		PrintWarning(fmt.Sprintf("%d of %d assets have incomplete finding lists; their totals are counted:", len(incomplete), len(m.PerAsset)))
		printAssetErrors(w, incomplete)
	}
}

func printAssetErrors(w io.Writer, entries []report.AssetReport) {
	for _, e := range entries {
		fmt.Fprintf(w, "      - %s (%s): %s\n", e.Asset.Name, e.Asset.ID, e.Error)
	}
}
