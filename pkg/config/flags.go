package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// listFlag is a comma-separated list flag. The first Set replaces the
// default; later ones append.
type listFlag struct {
	target *[]string
	set    bool
}

func (l *listFlag) String() string {
	if l.target == nil {
		return ""
	}
	return strings.Join(*l.target, ",")
}

func (l *listFlag) Set(value string) error {
	if !l.set {
		*l.target = nil
		l.set = true
	}
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			*l.target = append(*l.target, v)
		}
	}
	return nil
}

// bind registers every flag on fs, writing into cfg. Each long name has
// its short alias.
func bind(fs *flag.FlagSet, cfg *Config) {
	// === COLLECTION ===
	fs.StringVar(&cfg.CollectionID, "collectionsid", cfg.CollectionID, "GUID of the collection to report on")
	fs.StringVar(&cfg.CollectionID, "c", cfg.CollectionID, "Collection GUID (alias)")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Exact name of the collection to report on")
	fs.StringVar(&cfg.Name, "n", cfg.Name, "Collection name (alias)")
	scanTypes := &listFlag{target: &cfg.ScanTypes}
	fs.Var(scanTypes, "scan_types", "Scan types to include: STATIC,DYNAMIC,SCA,MANUAL (default all)")
	fs.Var(scanTypes, "st", "Scan types (alias)")
	fs.BoolVar(&cfg.PolicyOnly, "policy-only", cfg.PolicyOnly, "Only list findings that violate policy")

	// === OUTPUT ===
	formats := &listFlag{target: &cfg.Formats}
	fs.Var(formats, "format", "Report formats: pdf,csv,json")
	fs.Var(formats, "f", "Report formats (alias)")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for report files")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "Output directory (alias)")

	// === ACCESS ===
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")
	fs.StringVar(&cfg.Profile, "profile", cfg.Profile, "Credentials file profile")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Assets fetched in parallel")

	// === TELEMETRY ===
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "Export traces to this OTLP gRPC endpoint (host:port)")

	// === TERMINAL ===
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Debug logging")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose (alias)")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print the version and exit")
}

// Parse builds a Config from args. A --config file is loaded first and
// flags given on the command line override it. The result is not
// validated; call Validate unless ShowVersion is set.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	// First pass only locates --config.
	probe := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	pre := Default()
	bind(probe, pre)
	if err := probe.Parse(args); err != nil {
		return nil, parseErr(fs, args, err)
	}

	cfg := Default()
	if pre.ConfigFile != "" {
		loaded, err := Load(pre.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	bind(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments: %s", ErrInvalidConfig, strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}

// parseErr reruns the real flag set so usage and the error are printed
// where the caller asked for them.
func parseErr(fs *flag.FlagSet, args []string, err error) error {
	bind(fs, Default())
	if perr := fs.Parse(args); perr != nil {
		err = perr
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}
