package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/exitcode"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/testutil"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/ui"
)

const paymentsGUID = "5a9c3e6e-1c3b-4d8e-9a43-2f1b7c0d9e11"

// These tests share the package-level UI output and must not run in
// parallel.

func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ui.SetOutput(&buf)
	ui.SetNoColor(true)
	t.Cleanup(func() { ui.SetOutput(nil) })
	return &buf
}

func envCreds(key string) string {
	switch key {
	case defaults.EnvAPIKeyID:
		return testutil.TestKeyID
	case defaults.EnvAPIKeySecret:
		return testutil.TestKeySecret
	}
	return ""
}

func noEnv(string) string { return "" }

func paymentsPlatform(t *testing.T) *testutil.Platform {
	t.Helper()
	p := testutil.NewPlatform(t)
	p.AddCollection(testutil.Collection{
		GUID: paymentsGUID, Name: "Payments", ComplianceStatus: "DID_NOT_PASS",
		Members: []string{"A", "B"},
	})
	p.AddApp(testutil.App{
		GUID: "A", Name: "asset A", ComplianceStatus: "DID_NOT_PASS",
		Scans: []testutil.Scan{{Type: finding.Static}},
		Findings: []testutil.Finding{
			{IssueID: 1, ScanType: finding.Static, Level: 4, CWE: 89, Title: "SQL Injection"},
			{IssueID: 2, ScanType: finding.Static, Level: 4, CWE: 79, Title: "Cross-Site Scripting"},
			{IssueID: 3, ScanType: finding.Static, Level: 4, CWE: 78, Title: "OS Command Injection"},
			{IssueID: 4, ScanType: finding.Static, Level: 2, CWE: 327, Title: "Broken Crypto"},
		},
	})
	p.AddApp(testutil.App{GUID: "B", Name: "asset B", FailStatus: http.StatusServiceUnavailable})
	return p
}

// writeConfig points the run at the fake platform and keeps every file
// it writes inside dir.
func writeConfig(t *testing.T, p *testutil.Platform, dir string, extra string) string {
	t.Helper()
	body := fmt.Sprintf(`base_url: %s
output_dir: %s
log_file: %s
retries: 1
requests_per_second: 0
%s`, p.URL, filepath.Join(dir, "out"), filepath.Join(dir, "run.log"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func outputs(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "out", "*"))
	require.NoError(t, err)
	return matches
}

func TestRun_Version(t *testing.T) {
	buf := captureUI(t)
	code := run(context.Background(), []string{"--version"}, noEnv)
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, buf.String(), defaults.Version)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"no collection", []string{"-f", "csv"}},
		{"both selectors", []string{"-c", paymentsGUID, "-n", "Payments"}},
		{"bad guid", []string{"-c", "not-a-guid"}},
		{"bad format", []string{"-n", "Payments", "-f", "docx"}},
		{"bad scan type", []string{"-n", "Payments", "-st", "IAST"}},
		{"positional", []string{"-n", "Payments", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureUI(t)
			assert.Equal(t, exitcode.Configuration, run(context.Background(), tt.args, noEnv))
		})
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	captureUI(t)
	p := paymentsPlatform(t)
	dir := t.TempDir()
	cfg := writeConfig(t, p, dir, "credentials_file: "+filepath.Join(dir, "absent")+"\n")

	code := run(context.Background(), []string{"--config", cfg, "-n", "Payments"}, noEnv)
	assert.Equal(t, exitcode.Auth, code)
	assert.Zero(t, p.Hits("/"), "no network traffic before credentials are found")
	assert.Empty(t, outputs(t, dir))
}

func TestRun_PaymentsScenario(t *testing.T) {
	buf := captureUI(t)
	p := paymentsPlatform(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "run.prom")
	cfg := writeConfig(t, p, dir, "metrics_file: "+metricsFile+"\n")

	code := run(context.Background(), []string{"--config", cfg, "-n", "Payments", "-st", "STATIC", "-f", "csv,json"}, envCreds)
	assert.Equal(t, exitcode.Partial, code)

	files := outputs(t, dir)
	require.Len(t, files, 2)
	var csvPath string
	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "Veracode Collection - Payments - ")
		if strings.HasSuffix(f, ".csv") {
			csvPath = f
		}
	}
	require.NotEmpty(t, csvPath)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	severityRows := map[string]int{}
	for _, row := range rows[1:] {
		if _, err := finding.ParseSeverity(row[1]); err == nil {
			severityRows[row[0]]++
		}
	}
	assert.Equal(t, 2, severityRows["asset A"])
	assert.Zero(t, severityRows["asset B"])
	assert.Contains(t, rows, []string{"asset B", "PARTIAL", "0"})

	out := buf.String()
	assert.Contains(t, out, "1 of 2 assets could not be fetched")
	assert.Contains(t, out, "asset B (B)")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `vccollections_assets_total{outcome="partial"} 1`)
	assert.Contains(t, string(prom), `vccollections_report_findings{severity="HIGH"} 3`)

	log, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "asset marked partial")
}

func TestRun_ByGUID(t *testing.T) {
	captureUI(t)
	p := paymentsPlatform(t)
	p.AddApp(testutil.App{GUID: "B", Name: "asset B", Scans: []testutil.Scan{{Type: finding.Static}}})
	dir := t.TempDir()
	cfg := writeConfig(t, p, dir, "")

	code := run(context.Background(), []string{"--config", cfg, "-c", paymentsGUID, "-f", "json"}, envCreds)
	assert.Equal(t, exitcode.Success, code)
	assert.Len(t, outputs(t, dir), 1)
}

func TestRun_CollectionNotFound(t *testing.T) {
	buf := captureUI(t)
	p := paymentsPlatform(t)
	dir := t.TempDir()
	cfg := writeConfig(t, p, dir, "")

	code := run(context.Background(), []string{"--config", cfg, "-n", "Billing"}, envCreds)
	assert.Equal(t, exitcode.NotFound, code)
	assert.Contains(t, buf.String(), "Billing")
	assert.Empty(t, outputs(t, dir))
}

func TestRun_Interrupted(t *testing.T) {
	captureUI(t)
	p := paymentsPlatform(t)
	dir := t.TempDir()
	cfg := writeConfig(t, p, dir, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := run(ctx, []string{"--config", cfg, "-n", "Payments", "-f", "pdf,csv,json"}, envCreds)
	assert.Equal(t, exitcode.Interrupted, code)
	assert.Empty(t, outputs(t, dir))
}
