// Package report holds the format-agnostic result of one aggregation run.
//
// A Model is built once by Build after every asset has been attempted and
// is read-only afterwards. Renderers receive it by pointer and must not
// modify it.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
)

// ErrInvariant indicates a model whose parts disagree.
var ErrInvariant = errors.New("report: model invariant violated")

// ScanSummary is the platform's rollup for one asset and scan type.
type ScanSummary struct {
	AssetID      string           `json:"asset_id"`
	ScanType     finding.ScanType `json:"scan_type"`
	LastScanDate time.Time        `json:"last_scan_date,omitzero"`
	Counts       finding.Counts   `json:"finding_counts_by_severity"`
}

// AssetReport is one member's slice of the report.
//
// A Partial entry could not be fetched and carries no data. An entry
// with FindingsIncomplete keeps its platform summaries, and so its
// totals, but lists only the findings drained before the fault.
type AssetReport struct {
	Asset              collection.AssetRef `json:"asset"`
	Summaries          []ScanSummary       `json:"summaries"`
	Findings           []finding.Finding   `json:"findings"`
	Partial            bool                `json:"partial"`
	FindingsIncomplete bool                `json:"findings_incomplete,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// Degraded reports whether any of the asset's data is missing.
func (a AssetReport) Degraded() bool { return a.Partial || a.FindingsIncomplete }

// Totals sums the summary counts of the asset.
func (a AssetReport) Totals() finding.Counts {
	var c finding.Counts
	for _, s := range a.Summaries {
		c = c.Add(s.Counts)
	}
	return c
}

// Weight is the severity-weighted total used to rank assets.
func (a AssetReport) Weight() int { return a.Totals().Weight() }

// Summary returns the summary for st, if present.
func (a AssetReport) Summary(st finding.ScanType) (ScanSummary, bool) {
	for _, s := range a.Summaries {
		if s.ScanType == st {
			return s, true
		}
	}
	return ScanSummary{}, false
}

// Model is the aggregation output.
type Model struct {
	RunID              string                `json:"run_id"`
	Collection         collection.Descriptor `json:"collection"`
	ScanTypes          finding.ScanTypeSet   `json:"scan_types"`
	GeneratedAt        time.Time             `json:"generated_at"`
	PreparedBy         string                `json:"prepared_by,omitempty"`
	PerAsset           []AssetReport         `json:"per_asset"`
	TotalsBySeverity   finding.Counts        `json:"totals_by_severity"`
	HadPartialFailures bool                  `json:"had_partial_failures"`
}

// Build assembles a model from per-member entries and derives the totals
// and the partial-failure flag. Entries must be in member order.
func Build(runID string, desc collection.Descriptor, scanTypes finding.ScanTypeSet, entries []AssetReport, generatedAt time.Time, preparedBy string) (*Model, error) {
	m := &Model{
		RunID:       runID,
		Collection:  desc,
		ScanTypes:   scanTypes,
		GeneratedAt: generatedAt,
		PreparedBy:  preparedBy,
		PerAsset:    entries,
	}
	if m.PerAsset == nil {
		m.PerAsset = []AssetReport{}
	}
	for i := range m.PerAsset {
		e := &m.PerAsset[i]
		if e.Summaries == nil {
			e.Summaries = []ScanSummary{}
		}
		if e.Findings == nil {
			e.Findings = []finding.Finding{}
		}
		m.TotalsBySeverity = m.TotalsBySeverity.Add(e.Totals())
		if e.Degraded() {
			m.HadPartialFailures = true
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structural invariants of the model.
func (m *Model) Validate() error {
	var total finding.Counts
	seen := make(map[string]bool, len(m.PerAsset))
	for i, e := range m.PerAsset {
		if i >= len(m.Collection.Members) || m.Collection.Members[i].ID != e.Asset.ID {
			if _, ok := m.Collection.Member(e.Asset.ID); !ok {
				return fmt.Errorf("%w: asset %s is not a member of %s", ErrInvariant, e.Asset.ID, m.Collection.ID)
			}
		}
		if seen[e.Asset.ID] {
			return fmt.Errorf("%w: asset %s reported twice", ErrInvariant, e.Asset.ID)
		}
		seen[e.Asset.ID] = true
		for _, s := range e.Summaries {
			if !m.ScanTypes.Contains(s.ScanType) {
				return fmt.Errorf("%w: asset %s has a %s summary outside the requested scan types", ErrInvariant, e.Asset.ID, s.ScanType)
			}
		}
		if e.Partial && (len(e.Summaries) > 0 || len(e.Findings) > 0) {
			return fmt.Errorf("%w: partial asset %s carries data", ErrInvariant, e.Asset.ID)
		}
		if e.Partial && e.FindingsIncomplete {
			return fmt.Errorf("%w: asset %s is both partial and incomplete", ErrInvariant, e.Asset.ID)
		}
		if e.Degraded() && !m.HadPartialFailures {
			return fmt.Errorf("%w: asset %s is degraded but the run is not flagged", ErrInvariant, e.Asset.ID)
		}
		total = total.Add(e.Totals())
	}
	if total != m.TotalsBySeverity {
		return fmt.Errorf("%w: totals do not match the asset summaries", ErrInvariant)
	}
	return nil
}

// Entry returns the report for assetID.
func (m *Model) Entry(assetID string) (*AssetReport, bool) {
	for i := range m.PerAsset {
		if m.PerAsset[i].Asset.ID == assetID {
			return &m.PerAsset[i], true
		}
	}
	return nil, false
}

// PartialAssets returns the entries that could not be fetched.
func (m *Model) PartialAssets() []AssetReport {
	var out []AssetReport
	for _, e := range m.PerAsset {
		if e.Partial {
			out = append(out, e)
		}
	}
	return out
}

// IncompleteAssets returns the entries whose findings list was cut short.
// Their totals are still counted.
func (m *Model) IncompleteAssets() []AssetReport {
	var out []AssetReport
	for _, e := range m.PerAsset {
		if e.FindingsIncomplete {
			out = append(out, e)
		}
	}
	return out
}

// DegradedCount returns the number of assets with missing data.
func (m *Model) DegradedCount() int {
	n := 0
	for _, e := range m.PerAsset {
		if e.Degraded() {
			n++
		}
	}
	return n
}

// Ranked returns the entries sorted by descending severity weight, then
// by name. The model itself is not reordered.
func (m *Model) Ranked() []AssetReport {
	out := slices.Clone(m.PerAsset)
	slices.SortStableFunc(out, func(a, b AssetReport) int {
		if c := cmp.Compare(b.Weight(), a.Weight()); c != 0 {
			return c
		}
		return cmp.Compare(a.Asset.Name, b.Asset.Name)
	})
	return out
}

// FindingCount returns the number of findings across all assets.
func (m *Model) FindingCount() int {
	n := 0
	for _, e := range m.PerAsset {
		n += len(e.Findings)
	}
	return n
}
