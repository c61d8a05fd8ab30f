// Command vccollections builds a security report for a Veracode
// collection in PDF, CSV and JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/aggregate"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/config"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/duration"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/metrics"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/exitcode"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/retry"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/tracing"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/ui"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr)
		ui.PrintWarning("Interrupt received, removing partial output...")
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Getenv)
	cancel()
	os.Exit(int(code))
}

// run executes one report and returns the process exit code.
func run(ctx context.Context, args []string, getenv func(string) string) exitcode.Code {
	fs := flag.NewFlagSet(defaults.ToolName, flag.ContinueOnError)
	fs.Usage = func() { usage(fs) }
	cfg, err := config.Parse(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return exitcode.Success
	}
	if err != nil {
		ui.PrintError(err.Error())
		return exitcode.Configuration
	}
	if cfg.ShowVersion {
		ui.PrintVersion()
		return exitcode.Success
	}
	ui.ConfigureColor(cfg.NoColor)

	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			ui.PrintError(line)
		}
		return exitcode.Configuration
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()
	prev := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(prev)

	ui.PrintBanner()
	ui.PrintConfigBanner(configOptions(cfg))

	r := &runner{cfg: cfg, logger: logger, getenv: getenv, exits: exitcode.New()}
	r.execute(ctx)

	code, reason := r.exits.ExitCode()
	logger.Info("run finished", slog.Int("exit_code", int(code)), slog.String("reason", reason))
	switch code {
	case exitcode.Success:
	case exitcode.Partial:
		ui.PrintWarning(reason)
	default:
		ui.PrintError(reason)
	}
	return code
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: %s (--collectionsid GUID | --name NAME) [options]\n\n", defaults.ToolName)
	fs.PrintDefaults()
}

// newLogger opens the run log. A log file that cannot be opened is
// reported and logging is discarded.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			ui.PrintWarning(fmt.Sprintf("cannot open log file: %v", err))
		} else {
			w = f
			closeFn = func() { _ = f.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger.With(slog.String("tool", defaults.ToolName)), closeFn
}

func configOptions(cfg *config.Config) []ui.ConfigOption {
	scanTypes := "ALL"
	if len(cfg.ScanTypes) > 0 {
		scanTypes = strings.ToUpper(strings.Join(cfg.ScanTypes, ","))
	}
	selector := cfg.Name
	if cfg.CollectionID != "" {
		selector = cfg.CollectionID
	}
	opts := []ui.ConfigOption{
		{Name: "Collection", Value: selector},
		{Name: "Scan types", Value: scanTypes},
		{Name: "Formats", Value: strings.Join(cfg.Formats, ",")},
		{Name: "Output directory", Value: cfg.OutputDir},
		{Name: "Profile", Value: cfg.Profile},
		{Name: "Concurrency", Value: fmt.Sprint(cfg.Concurrency)},
	}
	if cfg.PolicyOnly {
		opts = append(opts, ui.ConfigOption{Name: "Findings", Value: "policy violations only"})
	}
	return opts
}

// runner holds the per-run collaborators.
type runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	getenv  func(string) string
	exits   *exitcode.Manager
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// execute performs the run, recording every outcome in r.exits.
func (r *runner) execute(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, duration.Run)
	defer cancel()

	tracer, shutdown, err := tracing.Setup(ctx, tracing.Options{Endpoint: r.cfg.OTLPEndpoint})
	if err != nil {
		// Telemetry is optional.
		ui.PrintWarning(err.Error())
		r.logger.Warn("tracing disabled", slog.String("error", err.Error()))
		tracer, _, _ = tracing.Setup(ctx, tracing.Options{})
	} else {
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("trace flush failed", slog.String("error", err.Error()))
			}
		}()
	}
	r.tracer = tracer

	if r.cfg.MetricsFile != "" {
		m, err := metrics.New()
		if err != nil {
			r.exits.Record(err)
			return
		}
		r.metrics = m
		defer r.writeMetrics()
	}

	ctx, span := r.tracer.Start(ctx, defaults.ToolName+".run")
	defer span.End()

	model, err := r.report(ctx)
	if err != nil {
		r.fail(parent, err)
		span.RecordError(err)
		return
	}
	if r.metrics != nil {
		r.metrics.ObserveReport(model)
	}

	r.emit(ctx, parent, model)
	ui.PrintRunSummary(model)
	r.exits.RecordPartial(model.DegradedCount())
}

// report resolves the collection and aggregates its members.
func (r *runner) report(ctx context.Context) (*report.Model, error) {
	id, err := r.cfg.Identifier()
	if err != nil {
		return nil, err
	}
	scanTypes, err := r.cfg.ScanTypeSet()
	if err != nil {
		return nil, err
	}

	creds, err := credentials.Load(credentials.Options{
		Profile: r.cfg.Profile,
		Path:    r.cfg.CredentialsFile,
		Getenv:  r.getenv,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("loaded credentials", slog.Any("credentials", creds))

	client, err := veracode.New(creds, r.clientOptions()...)
	if err != nil {
		return nil, err
	}
	preparedBy, err := r.preflight(ctx, client)
	if err != nil {
		return nil, err
	}

	ui.PrintInfo(fmt.Sprintf("Resolving collection %s", id))
	desc, err := collection.NewResolver(client,
		collection.WithLogger(r.logger),
		collection.WithTracer(r.tracer),
	).Resolve(ctx, id, scanTypes)
	if err != nil {
		return nil, err
	}
	ui.PrintInfo(fmt.Sprintf("Collection %q has %d assets", desc.Name, len(desc.Members)))

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = r.cfg.Retries

	progress := ui.NewAssetProgress(ui.IsTerminal(os.Stderr) && !ui.IsNoColor())
	opts := []aggregate.Option{
		aggregate.WithConcurrency(r.cfg.Concurrency),
		aggregate.WithRetry(retryCfg),
		aggregate.WithPolicyOnly(r.cfg.PolicyOnly),
		aggregate.WithPreparedBy(preparedBy),
		aggregate.WithLogger(r.logger),
		aggregate.WithTracer(r.tracer),
		aggregate.WithProgress(progress.Update),
	}
	if r.metrics != nil {
		opts = append(opts, aggregate.WithRecorder(r.metrics))
	}
	model, err := aggregate.New(client, opts...).Aggregate(ctx, desc, scanTypes)
	progress.Finish()
	return model, err
}

func (r *runner) clientOptions() []veracode.Option {
	opts := []veracode.Option{
		veracode.WithRateLimit(r.cfg.RequestsPerSecond, r.cfg.Burst),
		veracode.WithPageSize(r.cfg.PageSize),
		veracode.WithTimeout(r.cfg.Timeout),
		veracode.WithLogger(r.logger),
		veracode.WithTracer(r.tracer),
	}
	if r.cfg.BaseURL != "" {
		opts = append(opts, veracode.WithBaseURL(r.cfg.BaseURL))
	}
	if r.metrics != nil {
		opts = append(opts, veracode.WithObserver(r.metrics.ObserveRequest))
	}
	return opts
}

// preflight identifies the caller and warns about expiring credentials.
// Rejected credentials are fatal; any other failure only costs the
// "prepared by" line.
func (r *runner) preflight(ctx context.Context, client *veracode.Client) (string, error) {
	user, err := client.Self(ctx)
	if err != nil {
		if errors.Is(err, veracode.ErrUnauthorized) || ctx.Err() != nil {
			return "", err
		}
		r.logger.Warn("user lookup failed", slog.String("error", err.Error()))
		return "", nil
	}

	info, err := client.CredentialsInfo(ctx)
	if err != nil {
		r.logger.Warn("credential lookup failed", slog.String("error", err.Error()))
		return user.DisplayName(), nil
	}
	window := defaults.CredentialExpiryWarnDays * 24 * time.Hour
	exp, soon, err := info.ExpiresWithin(time.Now(), window)
	switch {
	case err != nil:
		r.logger.Warn("credential expiry unreadable", slog.String("error", err.Error()))
	case soon:
		ui.PrintWarning(fmt.Sprintf("API credentials expire on %s", exp.Local().Format("2006-01-02 15:04")))
		r.logger.Warn("credentials expiring", slog.Time("expires", exp))
	}
	return user.DisplayName(), nil
}

// emit writes every requested format.
func (r *runner) emit(ctx, parent context.Context, model *report.Model) {
	renderers, err := r.cfg.Renderers()
	if err != nil {
		r.exits.Record(err)
		return
	}
	names, err := output.ParseNameTemplate(r.cfg.FileName)
	if err != nil {
		r.exits.Record(err)
		return
	}
	emitter, err := output.NewEmitter(
		output.WithDir(r.cfg.OutputDir),
		output.WithNameTemplate(names),
		output.WithLogger(r.logger),
	)
	if err != nil {
		r.exits.Record(err)
		return
	}

	results, err := emitter.Emit(ctx, model, renderers)
	if err != nil {
		r.fail(parent, err)
		return
	}
	for _, res := range results {
		if res.OK() {
			ui.PrintSuccess(fmt.Sprintf("Wrote %s (%d bytes)", res.Path, res.Bytes))
			continue
		}
		ui.PrintError(fmt.Sprintf("%s report failed: %v", strings.ToUpper(res.Format), res.Err))
	}
	if err := output.Failures(results); err != nil {
		r.exits.Record(err)
	}
}

// fail records a fatal error. Cancellation of the parent context is an
// interruption whatever error it surfaced as.
func (r *runner) fail(parent context.Context, err error) {
	if parent.Err() != nil {
		r.exits.SetInterrupted()
		return
	}
	r.exits.Record(err)
}

func (r *runner) writeMetrics() {
	if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
		ui.PrintWarning(err.Error())
		r.logger.Warn("metrics not written", slog.String("error", err.Error()))
	}
}
