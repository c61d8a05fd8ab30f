package finding

import (
	"errors"
	"testing"
)

func TestMapSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		st      ScanType
		token   string
		want    Severity
		wantErr bool
	}{
		{"static level 5", Static, "5", VeryHigh, false},
		{"static level 0", Static, "0", Informational, false},
		{"dynamic level 3", Dynamic, "3", Medium, false},
		{"manual level 4", Manual, "4", High, false},
		{"sca numeric", SCA, "2", Low, false},
		{"sca text", SCA, "Very High", VeryHigh, false},
		{"sca critical", SCA, "critical", VeryHigh, false},
		{"sca none", SCA, "None", Informational, false},
		{"static rejects text", Static, "High", 0, true},
		{"static rejects level 6", Static, "6", 0, true},
		{"empty token", Dynamic, "", 0, true},
		{"unknown scan type", ScanType("PENTEST"), "3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MapSeverity(tt.st, tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrSchema) {
					t.Fatalf("MapSeverity(%s, %q) err = %v, want ErrSchema", tt.st, tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapSeverity(%s, %q): %v", tt.st, tt.token, err)
			}
			if got != tt.want {
				t.Errorf("MapSeverity(%s, %q) = %v, want %v", tt.st, tt.token, got, tt.want)
			}
		})
	}
}

func TestMapStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status, resolution, resolutionStatus string
		want                                 Status
		wantErr                              bool
	}{
		{"OPEN", "UNRESOLVED", "NONE", StatusOpen, false},
		{"CLOSED", "UNRESOLVED", "NONE", StatusFixed, false},
		{"OPEN", "MITIGATED", "APPROVED", StatusMitigated, false},
		{"CLOSED", "POTENTIAL_FALSE_POSITIVE", "APPROVED", StatusMitigated, false},
		{"OPEN", "MITIGATED", "PROPOSED", StatusOpen, false},
		{"", "", "", "", true},
		{"PENDING", "", "", "", true},
	}
	for _, tt := range tests {
		got, err := MapStatus(tt.status, tt.resolution, tt.resolutionStatus)
		if (err != nil) != tt.wantErr {
			t.Fatalf("MapStatus(%q,%q,%q) err = %v, wantErr %v", tt.status, tt.resolution, tt.resolutionStatus, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("MapStatus(%q,%q,%q) = %q, want %q", tt.status, tt.resolution, tt.resolutionStatus, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	raw := Raw{
		IssueID:        42,
		SeverityToken:  "4",
		CWEID:          89,
		Title:          "SQL Injection",
		Status:         "OPEN",
		Resolution:     "UNRESOLVED",
		ViolatesPolicy: true,
		Location:       "com/acme/Dao.java:120",
	}
	f, err := Normalize("asset-1", Static, raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.Severity != High || f.Status != StatusOpen || f.CWE() != "CWE-89" {
		t.Errorf("unexpected finding %+v", f)
	}
	if f.Fingerprint == "" || len(f.Fingerprint) != 32 {
		t.Errorf("Fingerprint = %q, want 32 hex chars", f.Fingerprint)
	}

	again, _ := Normalize("asset-1", Static, raw)
	if again.Fingerprint != f.Fingerprint {
		t.Error("fingerprint must be deterministic")
	}

	noTitle := raw
	noTitle.Title = ""
	f2, err := Normalize("asset-1", Static, noTitle)
	if err != nil {
		t.Fatal(err)
	}
	if f2.Title != "CWE-89" {
		t.Errorf("Title fallback = %q, want CWE-89", f2.Title)
	}

	bad := raw
	bad.SeverityToken = "11"
	if _, err := Normalize("asset-1", Static, bad); !errors.Is(err, ErrSchema) {
		t.Errorf("unknown severity must be a schema error, got %v", err)
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	a := Finding{AssetID: "x", ScanType: Static, IssueID: 1, Fingerprint: "f1"}
	b := Finding{AssetID: "x", ScanType: Static, IssueID: 2, Fingerprint: "f2"}
	c := Finding{AssetID: "x", ScanType: SCA, Fingerprint: "f3"}

	got := Dedupe([]Finding{a, b, a, c, c})
	if len(got) != 3 {
		t.Fatalf("Dedupe len = %d, want 3", len(got))
	}
	if got[0].IssueID != 1 || got[1].IssueID != 2 || got[2].Fingerprint != "f3" {
		t.Errorf("Dedupe must keep first occurrences in order, got %+v", got)
	}

	// Same issue id in different scan types are distinct findings.
	d := Finding{AssetID: "x", ScanType: Dynamic, IssueID: 1}
	if n := len(Dedupe([]Finding{a, d})); n != 2 {
		t.Errorf("cross-scan-type dedupe len = %d, want 2", n)
	}
}
