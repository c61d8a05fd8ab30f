package veracode

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
)

// Application is an application profile with its scan history.
type Application struct {
	GUID                  string  `json:"guid"`
	ID                    int     `json:"id"`
	LastCompletedScanDate string  `json:"last_completed_scan_date"`
	Profile               Profile `json:"profile"`
	Scans                 []Scan  `json:"scans"`
}

// Profile holds the descriptive part of an application.
type Profile struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	BusinessCriticality string `json:"business_criticality"`
}

// Scan is one entry of an application's scan list.
type Scan struct {
	ScanType     string `json:"scan_type"`
	Status       string `json:"status"`
	ModifiedDate string `json:"modified_date"`
}

// LastScan returns the most recent modification date among scans of st,
// and whether any such scan exists.
func (a Application) LastScan(st finding.ScanType) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, s := range a.Scans {
		if !strings.EqualFold(s.ScanType, string(st)) {
			continue
		}
		found = true
		if t, err := ParseTimestamp(s.ModifiedDate); err == nil && t.After(latest) {
			latest = t
		}
	}
	return latest, found
}

func checkApplication(a *Application) error {
	if a.GUID == "" {
		return finding.Missing("application", "guid")
	}
	for _, s := range a.Scans {
		if s.ScanType == "" {
			return finding.Missing("application", "scans.scan_type")
		}
	}
	return nil
}

// GetApplication fetches an application profile and its scan list.
func (c *Client) GetApplication(ctx context.Context, guid string) (*Application, error) {
	var app Application
	if err := c.getJSON(ctx, "application", "/appsec/v1/applications/"+url.PathEscape(guid), nil, &app); err != nil {
		return nil, err
	}
	if err := checkApplication(&app); err != nil {
		return nil, err
	}
	return &app, nil
}
