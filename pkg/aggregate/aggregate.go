// Package aggregate builds the report model for a resolved collection.
//
// Each member asset is fetched independently on a bounded worker pool.
// Results land in a slot pre-allocated for the member's index, so the
// model keeps member order whatever the completion order and workers
// never share an accumulator.
//
// Failure handling per asset:
//   - transient errors are retried, then the asset is marked partial
//   - a findings drain that keeps failing after the counts were read keeps
//     the counts and marks the findings incomplete
//   - other API errors (403 on one profile, say) mark it partial at once
//   - schema errors and caller cancellation abort the whole run
package aggregate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/retry"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/workerpool"
)

// ErrNoScanTypes indicates an empty scan-type filter.
var ErrNoScanTypes = errors.New("aggregate: no scan types requested")

// API is the subset of the platform client the aggregator needs.
type API interface {
	GetApplication(ctx context.Context, guid string) (*veracode.Application, error)
	CountFindings(ctx context.Context, app string, st finding.ScanType, sev finding.Severity, policyOnly bool) (int, error)
	Findings(app string, st finding.ScanType, policyOnly bool) *veracode.Pager[veracode.FindingRecord]
}

// Aggregator fetches and folds per-asset results.
type Aggregator struct {
	api         API
	concurrency int
	retry       retry.Config
	policyOnly  bool
	preparedBy  string
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
	recorder    Recorder
	progress    Progress
}

// New creates an Aggregator over api.
func New(api API, opts ...Option) *Aggregator {
	a := &Aggregator{
		api:         api,
		concurrency: defaults.Concurrency,
		retry:       retry.DefaultConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(defaults.ToolName + "/aggregate")
	}
	if a.recorder == nil {
		a.recorder = nopRecorder{}
	}
	return a
}

// Aggregate attempts every member of desc and returns the model. It
// returns an error, and no model, only for schema drift or cancellation.
func (a *Aggregator) Aggregate(ctx context.Context, desc *collection.Descriptor, scanTypes finding.ScanTypeSet) (*report.Model, error) {
	if len(scanTypes) == 0 {
		return nil, ErrNoScanTypes
	}

	ctx, span := a.tracer.Start(ctx, "aggregate", trace.WithAttributes(
		attribute.String("collection.guid", desc.ID),
		attribute.Int("collection.members", len(desc.Members)),
		attribute.StringSlice("scan_types", scanTypes.Strings()),
	))
	defer span.End()

	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	pool := workerpool.New(a.concurrency)
	defer pool.Close()

	var done atomic.Int32
	total := len(desc.Members)
	a.logger.Info("aggregating collection",
		slog.String("collection", desc.Name),
		slog.Int("assets", total),
		slog.String("scan_types", scanTypes.String()),
		slog.Int("concurrency", a.concurrency))

	entries, err := workerpool.Map(ctx, pool, desc.Members, func(ctx context.Context, _ int, ref collection.AssetRef) report.AssetReport {
		entry := a.asset(ctx, abort, ref, scanTypes)
		if a.progress != nil && ctx.Err() == nil {
			a.progress(int(done.Add(1)), total, ref, entry.Degraded())
		}
		return entry
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	m, err := report.Build(uuid.NewString(), *desc, scanTypes, entries, a.now(), a.preparedBy)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	span.SetAttributes(attribute.Bool("partial", m.HadPartialFailures))
	return m, nil
}

// asset produces one member's entry. Fatal failures cancel the run
// through abort and return an empty entry that Map discards.
func (a *Aggregator) asset(ctx context.Context, abort context.CancelCauseFunc, ref collection.AssetRef, scanTypes finding.ScanTypeSet) report.AssetReport {
	start := a.now()
	ctx, span := a.tracer.Start(ctx, "aggregate.asset", trace.WithAttributes(
		attribute.String("asset.guid", ref.ID),
		attribute.String("asset.name", ref.Name),
	))
	defer span.End()

	cfg := a.retry
	cfg.Retryable = veracode.IsTransient
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.recorder.RetryAttempted()
		a.logger.Warn("retrying asset",
			slog.String("asset", ref.Name),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	}

	var entry report.AssetReport
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		e, err := a.summaries(ctx, ref, scanTypes)
		if err == nil {
			entry = e
		}
		return err
	})
	if err == nil {
		err = a.drain(ctx, cfg, &entry)
	}
	elapsed := a.now().Sub(start)

	switch {
	case err == nil && entry.FindingsIncomplete:
		span.SetStatus(codes.Error, "findings incomplete")
		a.recorder.AssetCompleted(OutcomeIncomplete, elapsed)
		a.logger.Warn("asset findings incomplete",
			slog.String("asset", ref.Name),
			slog.String("guid", ref.ID),
			slog.String("error", entry.Error))
		return entry
	case err == nil:
		a.recorder.AssetCompleted(OutcomeOK, elapsed)
		return entry
	case errors.Is(err, finding.ErrSchema):
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema")
		a.recorder.AssetCompleted(OutcomeAborted, elapsed)
		a.logger.Error("upstream schema violation", slog.String("asset", ref.Name), slog.String("error", err.Error()))
		abort(err)
		return report.AssetReport{Asset: ref}
	case ctx.Err() != nil:
		a.recorder.AssetCompleted(OutcomeAborted, elapsed)
		return report.AssetReport{Asset: ref}
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "partial")
		a.recorder.AssetCompleted(OutcomePartial, elapsed)
		a.logger.Warn("asset marked partial",
			slog.String("asset", ref.Name),
			slog.String("guid", ref.ID),
			slog.String("error", err.Error()))
		return report.AssetReport{Asset: ref, Partial: true, Error: err.Error()}
	}
}

// summaries reads the application and the platform counts for every
// requested scan type present on the asset.
func (a *Aggregator) summaries(ctx context.Context, ref collection.AssetRef, scanTypes finding.ScanTypeSet) (report.AssetReport, error) {
	entry := report.AssetReport{
		Asset:     ref,
		Summaries: []report.ScanSummary{},
		Findings:  []finding.Finding{},
	}

	app, err := a.api.GetApplication(ctx, ref.ID)
	if err != nil {
		return entry, err
	}

	for _, st := range scanTypes {
		last, scanned := app.LastScan(st)
		// Agent-based SCA results do not appear in the scan list.
		if !scanned && st != finding.SCA {
			continue
		}
		counts, err := a.counts(ctx, ref.ID, st)
		if err != nil {
			return entry, err
		}
		if !scanned && counts.IsZero() {
			continue
		}
		entry.Summaries = append(entry.Summaries, report.ScanSummary{
			AssetID:      ref.ID,
			ScanType:     st,
			LastScanDate: last,
			Counts:       counts,
		})
	}
	return entry, nil
}

// drain fetches the findings behind each summary. A scan type whose
// pages keep failing keeps the findings read before the fault and marks
// the entry incomplete. Only fatal errors are returned.
func (a *Aggregator) drain(ctx context.Context, cfg retry.Config, entry *report.AssetReport) error {
	var faults []string
	for _, s := range entry.Summaries {
		var best []finding.Finding
		err := retry.Do(ctx, cfg, func(ctx context.Context) error {
			got, err := a.findings(ctx, entry.Asset.ID, s.ScanType)
			if len(got) > len(best) {
				best = got
			}
			if err == nil {
				best = got
			}
			return err
		})
		best = finding.Dedupe(best)
		entry.Findings = append(entry.Findings, best...)
		a.recorder.FindingsCollected(s.ScanType, len(best))
		switch {
		case err == nil:
		case errors.Is(err, finding.ErrSchema), ctx.Err() != nil:
			return err
		default:
			faults = append(faults, fmt.Sprintf("%s findings: %v", s.ScanType, err))
		}
	}
	if len(faults) > 0 {
		entry.FindingsIncomplete = true
		entry.Error = strings.Join(faults, "; ")
	}
	sortFindings(entry.Findings)
	return nil
}

// counts reads the platform-materialized count for every severity.
func (a *Aggregator) counts(ctx context.Context, app string, st finding.ScanType) (finding.Counts, error) {
	var c finding.Counts
	for _, sev := range finding.Ordered() {
		n, err := a.api.CountFindings(ctx, app, st, sev, a.policyOnly)
		if err != nil {
			return c, err
		}
		c[sev] = n
	}
	return c, nil
}

// findings drains and normalizes one scan type's findings. On a page
// fault it returns what was read so far with the error. An empty list
// is a valid result.
func (a *Aggregator) findings(ctx context.Context, app string, st finding.ScanType) ([]finding.Finding, error) {
	var out []finding.Finding
	for rec, err := range a.api.Findings(app, st, a.policyOnly).All(ctx) {
		if err != nil {
			return out, err
		}
		f, err := finding.Normalize(app, st, rec.Raw())
		if err != nil {
			return out, retry.Stop(fmt.Errorf("asset %s: %w", app, err))
		}
		out = append(out, f)
	}
	return out, nil
}

// sortFindings orders by descending severity, then scan type, then issue.
func sortFindings(fs []finding.Finding) {
	order := finding.AllScanTypes()
	slices.SortStableFunc(fs, func(x, y finding.Finding) int {
		if c := cmp.Compare(y.Severity, x.Severity); c != 0 {
			return c
		}
		if c := cmp.Compare(slices.Index(order, x.ScanType), slices.Index(order, y.ScanType)); c != 0 {
			return c
		}
		return cmp.Compare(x.IssueID, y.IssueID)
	})
}
