// Package collection resolves a collection identifier into an immutable
// descriptor holding the collection's metadata and its member assets.
package collection

import (
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// Descriptor is a resolved collection. It is not modified after Resolve
// returns it.
type Descriptor struct {
	ID                 string                      `json:"id"`
	Name               string                      `json:"name"`
	Description        string                      `json:"description,omitempty"`
	ComplianceStatus   string                      `json:"compliance_status,omitempty"`
	ComplianceOverview veracode.ComplianceOverview `json:"compliance_overview"`
	Members            []AssetRef                  `json:"members"`
}

// AssetRef points at a member application. The policy fields are copied
// from the collection listing for display only.
type AssetRef struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	PolicyStatus           string    `json:"policy_compliance_status,omitempty"`
	PassedRules            bool      `json:"passed_rules"`
	PassedScanRequirements bool      `json:"passed_scan_requirements"`
	InGracePeriod          bool      `json:"in_grace_period"`
	LastScan               time.Time `json:"last_completed_scan_date,omitzero"`
}

// Member returns the member with id, if any.
func (d *Descriptor) Member(id string) (AssetRef, bool) {
	for _, m := range d.Members {
		if m.ID == id {
			return m, true
		}
	}
	return AssetRef{}, false
}

// MembersByStatus returns members whose policy status equals status,
// in member order.
func (d *Descriptor) MembersByStatus(status string) []AssetRef {
	var out []AssetRef
	for _, m := range d.Members {
		if m.PolicyStatus == status {
			out = append(out, m)
		}
	}
	return out
}
