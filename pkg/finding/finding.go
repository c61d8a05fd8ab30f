package finding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Status is the remediation state of a finding.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusMitigated Status = "MITIGATED"
	StatusFixed     Status = "FIXED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusMitigated, StatusFixed:
		return true
	}
	return false
}

// Finding is the normalized record every upstream scan-type schema is
// coerced into.
type Finding struct {
	AssetID        string   `json:"asset_id"`
	ScanType       ScanType `json:"scan_type"`
	IssueID        int      `json:"issue_id,omitzero"`
	Severity       Severity `json:"severity"`
	CWEID          int      `json:"cwe_id,omitzero"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	ViolatesPolicy bool     `json:"violates_policy"`
	Location       string   `json:"location,omitempty"`
	Fingerprint    string   `json:"fingerprint"`
}

// CWE returns the "CWE-n" label, or "" when no CWE is attached.
func (f Finding) CWE() string {
	if f.CWEID <= 0 {
		return ""
	}
	return "CWE-" + strconv.Itoa(f.CWEID)
}

// DedupKey identifies a finding within one asset. The platform issue id is
// authoritative; the fingerprint covers records that have none.
func (f Finding) DedupKey() string {
	if f.IssueID > 0 {
		return fmt.Sprintf("%s/%s/%d", f.AssetID, f.ScanType, f.IssueID)
	}
	return f.AssetID + "/" + f.Fingerprint
}

// Fingerprint hashes the identifying fields of a finding with murmur3.
// It is stable across runs for the same upstream issue.
func Fingerprint(assetID string, st ScanType, cweID int, location, title string) string {
	key := strings.Join([]string{assetID, string(st), strconv.Itoa(cweID), location, title}, "|")
	h1, h2 := murmur3.Sum128([]byte(key))
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// Dedupe drops repeated findings, keeping the first occurrence and the
// original order. Pages that shift while being drained can return the
// same issue twice.
func Dedupe(findings []Finding) []Finding {
	if len(findings) <= 1 {
		return findings
	}
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := f.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
