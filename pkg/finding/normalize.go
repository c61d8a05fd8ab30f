package finding

import (
	"strconv"
	"strings"
)

// Raw is a scan-type-specific finding as the API adapter decoded it,
// before normalization. Severity and status fields hold upstream tokens.
type Raw struct {
	IssueID          int
	SeverityToken    string // platform level ("0".."5") or SCA rating text
	CWEID            int
	Title            string
	Status           string // OPEN, CLOSED
	Resolution       string // UNRESOLVED, MITIGATED, POTENTIAL_FALSE_POSITIVE, ...
	ResolutionStatus string // NONE, PROPOSED, APPROVED, REJECTED
	ViolatesPolicy   bool
	Location         string
}

// numericLevels is the vocabulary of scan types that report the platform
// level directly.
var numericLevels = map[string]Severity{
	"5": VeryHigh,
	"4": High,
	"3": Medium,
	"2": Low,
	"1": VeryLow,
	"0": Informational,
}

// scaRatings extends the numeric vocabulary with the textual ratings
// attached to component vulnerabilities. Keys are upper-cased.
var scaRatings = map[string]Severity{
	"CRITICAL":      VeryHigh,
	"VERY HIGH":     VeryHigh,
	"VERY_HIGH":     VeryHigh,
	"HIGH":          High,
	"MEDIUM":        Medium,
	"LOW":           Low,
	"VERY LOW":      VeryLow,
	"VERY_LOW":      VeryLow,
	"INFORMATIONAL": Informational,
	"NONE":          Informational,
}

// severityTables maps each scan type to its upstream severity vocabulary.
var severityTables = map[ScanType]func(token string) (Severity, bool){
	Static:  lookupNumeric,
	Dynamic: lookupNumeric,
	Manual:  lookupNumeric,
	SCA: func(token string) (Severity, bool) {
		if s, ok := lookupNumeric(token); ok {
			return s, true
		}
		s, ok := scaRatings[strings.ToUpper(token)]
		return s, ok
	},
}

func lookupNumeric(token string) (Severity, bool) {
	s, ok := numericLevels[token]
	return s, ok
}

// MapSeverity converts an upstream severity token for scan type st.
func MapSeverity(st ScanType, token string) (Severity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, Missing("findings", "finding_details.severity")
	}
	lookup, ok := severityTables[st]
	if !ok {
		return 0, Unrecognized("findings", "scan_type", string(st))
	}
	s, ok := lookup(token)
	if !ok {
		return 0, Unrecognized("findings", "finding_details.severity", token)
	}
	return s, nil
}

// MapStatus converts the upstream status triple into a Status.
// An approved mitigation wins over the open/closed flag.
func MapStatus(status, resolution, resolutionStatus string) (Status, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	resolution = strings.ToUpper(strings.TrimSpace(resolution))
	if strings.EqualFold(resolutionStatus, "APPROVED") && resolution != "" && resolution != "UNRESOLVED" {
		return StatusMitigated, nil
	}
	switch status {
	case "OPEN", "REOPENED", "NEW":
		return StatusOpen, nil
	case "CLOSED", "FIXED":
		return StatusFixed, nil
	case "":
		return "", Missing("findings", "finding_status.status")
	default:
		return "", Unrecognized("findings", "finding_status.status", status)
	}
}

// Normalize coerces a raw record into a Finding for assetID.
func Normalize(assetID string, st ScanType, raw Raw) (Finding, error) {
	sev, err := MapSeverity(st, raw.SeverityToken)
	if err != nil {
		return Finding{}, err
	}
	status, err := MapStatus(raw.Status, raw.Resolution, raw.ResolutionStatus)
	if err != nil {
		return Finding{}, err
	}
	title := strings.TrimSpace(raw.Title)
	if title == "" && raw.CWEID > 0 {
		title = "CWE-" + strconv.Itoa(raw.CWEID)
	}
	return Finding{
		AssetID:        assetID,
		ScanType:       st,
		IssueID:        raw.IssueID,
		Severity:       sev,
		CWEID:          raw.CWEID,
		Title:          title,
		Status:         status,
		ViolatesPolicy: raw.ViolatesPolicy,
		Location:       raw.Location,
		Fingerprint:    Fingerprint(assetID, st, raw.CWEID, raw.Location, title),
	}, nil
}
