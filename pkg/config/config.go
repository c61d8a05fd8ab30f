// Package config merges defaults, an optional YAML file and command-line
// flags into one validated Config. Flags override the file, the file
// overrides built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/duration"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/writers"
)

// Config holds every run option.
type Config struct {
	// Collection selection: exactly one of CollectionID and Name.
	CollectionID string   `yaml:"collection_id"`
	Name         string   `yaml:"name"`
	ScanTypes    []string `yaml:"scan_types"` // empty means all
	PolicyOnly   bool     `yaml:"policy_only"`

	// Credentials
	Profile         string `yaml:"profile"`
	CredentialsFile string `yaml:"credentials_file"`

	// API access
	BaseURL           string        `yaml:"base_url"` // empty selects the credential region
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	PageSize          int           `yaml:"page_size"`
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
	Concurrency       int           `yaml:"concurrency"`

	// Output
	Formats   []string `yaml:"formats"`
	OutputDir string   `yaml:"output_dir"`
	FileName  string   `yaml:"file_name"` // text/template with sprig functions
	Title     string   `yaml:"title"`

	// Telemetry
	MetricsFile  string `yaml:"metrics_file"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	LogFile      string `yaml:"log_file"`

	// Terminal
	Verbose bool `yaml:"verbose"`
	NoColor bool `yaml:"no_color"`

	// Command-line only
	ConfigFile  string `yaml:"-"`
	ShowVersion bool   `yaml:"-"`
}

// Default returns a Config populated from pkg/defaults and pkg/duration.
func Default() *Config {
	return &Config{
		Profile:           defaults.Profile,
		RequestsPerSecond: defaults.RequestsPerSecond,
		Burst:             defaults.RequestBurst,
		PageSize:          defaults.PageSize,
		Timeout:           duration.APIRequest,
		Retries:           defaults.RetryAttempts,
		Concurrency:       defaults.Concurrency,
		Formats:           []string{defaults.Format},
		OutputDir:         ".",
		FileName:          defaults.FileNameTemplate,
		Title:             defaults.ReportTitle,
		LogFile:           defaults.LogFile,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalidConfig, path, err)
	}
	cfg := Default()
	if err := decode(bytes.NewReader(data), cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	cfg.ConfigFile = path
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch {
	case c.CollectionID == "" && c.Name == "":
		errs = append(errs, fmt.Errorf("%w: a collection id (--collectionsid) or name (--name) is required", ErrMissingRequired))
	case c.CollectionID != "" && c.Name != "":
		invalid("--collectionsid and --name are mutually exclusive")
	case c.CollectionID != "":
		if _, err := collection.ByGUID(c.CollectionID); err != nil {
			invalid("collection id %q is not a GUID", c.CollectionID)
		}
	}
	if _, err := c.ScanTypeSet(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Formats) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one format", ErrMissingRequired))
	} else if _, err := writers.ParseFormats(strings.Join(c.Formats, ",")); err != nil {
		errs = append(errs, err)
	}
	if _, err := output.ParseNameTemplate(c.FileName); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency < 1 || c.Concurrency > defaults.ConcurrencyMax {
		invalid("concurrency must be between 1 and %d, got %d", defaults.ConcurrencyMax, c.Concurrency)
	}
	if c.RequestsPerSecond < 0 {
		invalid("requests_per_second must not be negative")
	}
	if c.RequestsPerSecond > 0 && c.Burst < 1 {
		invalid("burst must be at least 1 when rate limiting")
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		invalid("page_size must be between 1 and 500, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		invalid("timeout must be positive")
	}
	if c.Retries < 1 {
		invalid("retries must be at least 1, got %d", c.Retries)
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("%w: output directory", ErrMissingRequired))
	}
	return errors.Join(errs...)
}

// Identifier returns the collection selector.
func (c *Config) Identifier() (collection.Identifier, error) {
	if c.CollectionID != "" {
		id, err := collection.ByGUID(c.CollectionID)
		if err != nil {
			return collection.Identifier{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return id, nil
	}
	if strings.TrimSpace(c.Name) == "" {
		return collection.Identifier{}, fmt.Errorf("%w: collection", ErrMissingRequired)
	}
	return collection.ByName(c.Name), nil
}

// ScanTypeSet parses the requested scan types. An empty list selects all.
func (c *Config) ScanTypeSet() (finding.ScanTypeSet, error) {
	return finding.ParseScanTypes(strings.Join(c.ScanTypes, ","))
}

// Renderers returns one renderer per requested format.
func (c *Config) Renderers() ([]writers.Renderer, error) {
	rs, err := writers.ParseFormats(strings.Join(c.Formats, ","))
	if err != nil {
		return nil, err
	}
	for i, r := range rs {
		if r.Format() == writers.FormatPDF {
			rs[i] = writers.NewPDFRenderer(writers.PDFOptions{Title: c.Title})
		}
	}
	return rs, nil
}
