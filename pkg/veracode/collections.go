package veracode

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
)

// Compliance statuses reported for collections and assets.
const (
	CompliancePassed      = "PASSED"
	ComplianceConditional = "CONDITIONAL_PASS"
	ComplianceDidNotPass  = "DID_NOT_PASS"
	ComplianceNotAssessed = "NOT_ASSESSED"
)

// ComplianceTitle returns the display title for a compliance status.
func ComplianceTitle(status string) string {
	switch strings.ToUpper(status) {
	case CompliancePassed:
		return "Passed"
	case ComplianceConditional:
		return "Conditional Pass"
	case ComplianceDidNotPass:
		return "Did Not Pass"
	case ComplianceNotAssessed, "":
		return "Not Assessed"
	default:
		return status
	}
}

// Collection is a named group of application profiles.
type Collection struct {
	GUID               string             `json:"guid"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	ComplianceStatus   string             `json:"compliance_status"`
	ComplianceOverview ComplianceOverview `json:"compliance_overview"`
	TotalAssets        int                `json:"total_assets"`
}

// ComplianceOverview tallies member assets per policy outcome.
type ComplianceOverview struct {
	NotPassingPolicy           int `json:"not_passing_policy"`
	PassingPolicy              int `json:"passing_policy"`
	ConditionallyPassingPolicy int `json:"conditionally_passing_policy"`
	NotAssessed                int `json:"not_assessed"`
}

// Asset is a collection member as listed by the collection asset resource.
type Asset struct {
	GUID       string          `json:"guid"`
	Name       string          `json:"name"`
	Attributes AssetAttributes `json:"attributes"`
}

// AssetAttributes is the policy evaluation the platform attaches to a member.
type AssetAttributes struct {
	Policies                     []AssetPolicy `json:"policies"`
	LastCompletedScanDate        string        `json:"last_completed_scan_date"`
	PolicyPassedRules            bool          `json:"policy_passed_rules"`
	PolicyPassedScanRequirements bool          `json:"policy_passed_scan_requirements"`
	PolicyInGracePeriod          bool          `json:"policy_in_grace_period"`
}

// AssetPolicy is one policy applied to an asset.
type AssetPolicy struct {
	Name                   string `json:"name"`
	PolicyComplianceStatus string `json:"policy_compliance_status"`
}

// ComplianceStatus returns the status of the first policy, or
// NOT_ASSESSED when no policy is attached.
func (a Asset) ComplianceStatus() string {
	if len(a.Attributes.Policies) == 0 || a.Attributes.Policies[0].PolicyComplianceStatus == "" {
		return ComplianceNotAssessed
	}
	return a.Attributes.Policies[0].PolicyComplianceStatus
}

func checkCollection(c *Collection) error {
	if c.GUID == "" {
		return finding.Missing("collection", "guid")
	}
	if c.Name == "" {
		return finding.Missing("collection", "name")
	}
	return nil
}

func checkAsset(a *Asset) error {
	if a.GUID == "" {
		return finding.Missing("collection asset", "guid")
	}
	if a.Name == "" {
		return finding.Missing("collection asset", "name")
	}
	return nil
}

// GetCollection fetches one collection. A 404 wraps ErrNotFound.
func (c *Client) GetCollection(ctx context.Context, guid string) (*Collection, error) {
	var coll Collection
	if err := c.getJSON(ctx, "collection", "/appsec/v1/collections/"+url.PathEscape(guid), nil, &coll); err != nil {
		return nil, err
	}
	if err := checkCollection(&coll); err != nil {
		return nil, err
	}
	return &coll, nil
}

// Collections lists collections visible to the caller. A non-empty name
// is passed as the server-side filter, which matches substrings.
func (c *Client) Collections(name string) *Pager[Collection] {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	return newPager(c, "collections", "/appsec/v1/collections", q, "collections", checkCollection)
}

// CollectionAssets lists the members of a collection in platform order.
func (c *Client) CollectionAssets(guid string) *Pager[Asset] {
	path := fmt.Sprintf("/appsec/v1/collections/%s/assets", url.PathEscape(guid))
	return newPager(c, "collection assets", path, nil, "assets", checkAsset)
}
