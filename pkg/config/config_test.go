package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/writers"
)

const testGUID = "0f3b2c4e-7a1d-4a57-9b0e-3c2f1d8e6a90"

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("vccollections", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return Parse(fs, args)
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vccollections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, []string{"pdf"}, cfg.Formats)
	assert.Equal(t, defaults.Concurrency, cfg.Concurrency)
	assert.Equal(t, defaults.RetryAttempts, cfg.Retries)
	assert.Equal(t, defaults.Profile, cfg.Profile)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Empty(t, cfg.ScanTypes)

	set, err := cfg.ScanTypeSet()
	require.NoError(t, err)
	assert.Equal(t, finding.ScanTypeSet(finding.AllScanTypes()), set)
}

func TestParse_LongAndShortFlags(t *testing.T) {
	t.Parallel()
	long, err := parse(t, "--collectionsid", testGUID, "--format", "csv,json", "--scan_types", "STATIC,SCA",
		"--output-dir", "out", "--verbose")
	require.NoError(t, err)
	short, err := parse(t, "-c", testGUID, "-f", "csv,json", "-st", "STATIC,SCA", "-o", "out", "-v")
	require.NoError(t, err)

	for _, cfg := range []*Config{long, short} {
		assert.Equal(t, testGUID, cfg.CollectionID)
		assert.Equal(t, []string{"csv", "json"}, cfg.Formats)
		assert.Equal(t, []string{"STATIC", "SCA"}, cfg.ScanTypes)
		assert.Equal(t, "out", cfg.OutputDir)
		assert.True(t, cfg.Verbose)
		assert.NoError(t, cfg.Validate())
	}
}

func TestParse_NameAlias(t *testing.T) {
	t.Parallel()
	cfg, err := parse(t, "-n", "Payments")
	require.NoError(t, err)
	id, err := cfg.Identifier()
	require.NoError(t, err)
	assert.False(t, id.IsGUID())
	assert.Equal(t, "Payments", id.Name)
}

func TestParse_RepeatedListFlagsAppend(t *testing.T) {
	t.Parallel()
	cfg, err := parse(t, "-n", "x", "-f", "csv", "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"csv", "json"}, cfg.Formats)
}

func TestParse_ConfigFileThenFlags(t *testing.T) {
	t.Parallel()
	path := writeYAML(t, `
name: Payments
formats: [csv]
concurrency: 8
timeout: 45s
policy_only: true
output_dir: reports
`)
	cfg, err := parse(t, "--config", path, "--concurrency", "2")
	require.NoError(t, err)
	assert.Equal(t, "Payments", cfg.Name)
	assert.Equal(t, []string{"csv"}, cfg.Formats)
	assert.Equal(t, 2, cfg.Concurrency, "flag overrides file")
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.True(t, cfg.PolicyOnly)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	t.Parallel()
	_, err := Load(writeYAML(t, "name: x\ncolour: blue\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeYAML(t, ""))
	require.NoError(t, err)
	assert.Equal(t, defaults.Concurrency, cfg.Concurrency)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Parallel()
	_, err := parse(t, "--bogus")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParse_Help(t *testing.T) {
	t.Parallel()
	_, err := parse(t, "-h")
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestParse_PositionalArgsRejected(t *testing.T) {
	t.Parallel()
	_, err := parse(t, "-n", "x", "extra")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"ok by name", func(c *Config) { c.Name = "Payments" }, nil},
		{"ok by guid", func(c *Config) { c.CollectionID = testGUID }, nil},
		{"neither", func(c *Config) {}, ErrMissingRequired},
		{"both", func(c *Config) { c.Name = "x"; c.CollectionID = testGUID }, ErrInvalidConfig},
		{"bad guid", func(c *Config) { c.CollectionID = "not-a-guid" }, ErrInvalidConfig},
		{"bad scan type", func(c *Config) { c.Name = "x"; c.ScanTypes = []string{"IAST"} }, finding.ErrUnknownScanType},
		{"bad format", func(c *Config) { c.Name = "x"; c.Formats = []string{"xlsx"} }, writers.ErrUnknownFormat},
		{"no format", func(c *Config) { c.Name = "x"; c.Formats = nil }, ErrMissingRequired},
		{"zero concurrency", func(c *Config) { c.Name = "x"; c.Concurrency = 0 }, ErrInvalidConfig},
		{"huge concurrency", func(c *Config) { c.Name = "x"; c.Concurrency = defaults.ConcurrencyMax + 1 }, ErrInvalidConfig},
		{"negative rate", func(c *Config) { c.Name = "x"; c.RequestsPerSecond = -1 }, ErrInvalidConfig},
		{"page size", func(c *Config) { c.Name = "x"; c.PageSize = 0 }, ErrInvalidConfig},
		{"timeout", func(c *Config) { c.Name = "x"; c.Timeout = 0 }, ErrInvalidConfig},
		{"retries", func(c *Config) { c.Name = "x"; c.Retries = 0 }, ErrInvalidConfig},
		{"file name", func(c *Config) { c.Name = "x"; c.FileName = "{{ .Name " }, output.ErrFileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Concurrency = 0
	cfg.Retries = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequired)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "retries")
}

func TestRenderers_PDFTitle(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Formats = []string{"json", "pdf"}
	cfg.Title = "Quarterly Review"
	rs, err := cfg.Renderers()
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "json", rs[0].Format())
	assert.IsType(t, &writers.PDFRenderer{}, rs[1])
}
