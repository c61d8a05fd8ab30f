package veracode

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/jsonutil"
)

// Token is a scalar the platform sends as either a JSON number or a
// string. It keeps the literal text; null decodes to "".
type Token string

// UnmarshalJSON accepts numbers, strings and null.
func (t *Token) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := jsonutil.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Token(s)
	default:
		if _, err := strconv.ParseFloat(string(b), 64); err != nil {
			return fmt.Errorf("veracode: token: expected number or string, got %s", b)
		}
		*t = Token(b)
	}
	return nil
}

// FindingRecord is one entry of the findings resource. Fields that only
// some scan types populate are left zero by the others.
type FindingRecord struct {
	IssueID        int            `json:"issue_id"`
	ScanType       string         `json:"scan_type"`
	Description    string         `json:"description"`
	ViolatesPolicy bool           `json:"violates_policy"`
	FindingStatus  FindingStatus  `json:"finding_status"`
	FindingDetails FindingDetails `json:"finding_details"`
}

// FindingStatus is the upstream status triple.
type FindingStatus struct {
	Status           string `json:"status"`
	Resolution       string `json:"resolution"`
	ResolutionStatus string `json:"resolution_status"`
	FirstFoundDate   string `json:"first_found_date"`
}

// FindingDetails carries the scan-type specific part of a finding.
type FindingDetails struct {
	Severity Token `json:"severity"`
	CWE      *CWE  `json:"cwe"`

	// STATIC
	FilePath       string `json:"file_path"`
	FileLineNumber int    `json:"file_line_number"`
	Module         string `json:"module"`

	// DYNAMIC and MANUAL
	URL           string `json:"url"`
	Path          string `json:"path"`
	Location      string `json:"location"`
	VulnParameter string `json:"vulnerable_parameter"`

	// SCA
	ComponentFilename string `json:"component_filename"`
	Version           string `json:"version"`
	CVE               *CVE   `json:"cve"`
}

// CWE is a weakness classification.
type CWE struct {
	ID   Token  `json:"id"`
	Name string `json:"name"`
}

// CVE is a component vulnerability.
type CVE struct {
	Name     string `json:"name"`
	Severity Token  `json:"severity"`
}

// location picks the most specific position the scan type reports.
func (r FindingRecord) location() string {
	d := r.FindingDetails
	switch {
	case d.FilePath != "" && d.FileLineNumber > 0:
		return d.FilePath + ":" + strconv.Itoa(d.FileLineNumber)
	case d.FilePath != "":
		return d.FilePath
	case d.URL != "" && d.VulnParameter != "":
		return d.URL + " [" + d.VulnParameter + "]"
	case d.URL != "":
		return d.URL
	case d.Location != "":
		return d.Location
	case d.Path != "":
		return d.Path
	case d.ComponentFilename != "":
		if d.Version != "" {
			return d.ComponentFilename + "@" + d.Version
		}
		return d.ComponentFilename
	}
	return d.Module
}

// Raw converts the record into the pre-normalization shape.
func (r FindingRecord) Raw() finding.Raw {
	d := r.FindingDetails
	raw := finding.Raw{
		IssueID:          r.IssueID,
		SeverityToken:    string(d.Severity),
		Status:           r.FindingStatus.Status,
		Resolution:       r.FindingStatus.Resolution,
		ResolutionStatus: r.FindingStatus.ResolutionStatus,
		ViolatesPolicy:   r.ViolatesPolicy,
		Location:         r.location(),
	}
	if d.CWE != nil {
		raw.CWEID, _ = strconv.Atoi(string(d.CWE.ID))
		raw.Title = d.CWE.Name
	}
	if d.CVE != nil {
		if raw.SeverityToken == "" {
			raw.SeverityToken = string(d.CVE.Severity)
		}
		if d.CVE.Name != "" {
			raw.Title = d.CVE.Name
		}
	}
	if raw.Title == "" {
		raw.Title = r.Description
	}
	return raw
}

func findingsQuery(st finding.ScanType, policyOnly bool) url.Values {
	q := url.Values{}
	q.Set("scan_type", string(st))
	if policyOnly {
		q.Set("violates_policy", "true")
	}
	return q
}

func findingsPath(app string) string {
	return "/appsec/v2/applications/" + url.PathEscape(app) + "/findings"
}

// Findings lists an application's findings of one scan type.
func (c *Client) Findings(app string, st finding.ScanType, policyOnly bool) *Pager[FindingRecord] {
	return newPager[FindingRecord](c, "findings", findingsPath(app), findingsQuery(st, policyOnly), "findings", nil)
}

// CountFindings returns the platform's count of an application's findings
// of one scan type and severity, read from the page total of a one-record
// page.
func (c *Client) CountFindings(ctx context.Context, app string, st finding.ScanType, sev finding.Severity, policyOnly bool) (int, error) {
	q := findingsQuery(st, policyOnly)
	q.Set("severity", strconv.Itoa(sev.Level()))
	q.Set("size", "1")
	q.Set("page", "0")

	var env envelope[FindingRecord]
	if err := c.getJSON(ctx, "findings", findingsPath(app), q, &env); err != nil {
		return 0, err
	}
	if env.Page == nil {
		return 0, finding.Missing("findings", "page")
	}
	if env.Page.TotalElements < 0 {
		return 0, finding.Unrecognized("findings", "page.total_elements", strconv.Itoa(env.Page.TotalElements))
	}
	return env.Page.TotalElements, nil
}
