package aggregate

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/retry"
)

// Asset outcomes reported to the Recorder.
const (
	OutcomeOK         = "ok"
	OutcomePartial    = "partial"
	OutcomeIncomplete = "incomplete"
	OutcomeAborted    = "aborted"
)

// Recorder receives run measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	AssetCompleted(outcome string, elapsed time.Duration)
	RetryAttempted()
	FindingsCollected(st finding.ScanType, n int)
}

type nopRecorder struct{}

func (nopRecorder) AssetCompleted(string, time.Duration)    {}
func (nopRecorder) RetryAttempted()                         {}
func (nopRecorder) FindingsCollected(finding.ScanType, int) {}

// Progress is called after each asset finishes. It runs on worker
// goroutines.
type Progress func(done, total int, asset collection.AssetRef, partial bool)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds the number of assets fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithRetry sets the per-asset retry policy. The classifier is always
// replaced so that only transient failures are retried.
func WithRetry(cfg retry.Config) Option {
	return func(a *Aggregator) { a.retry = cfg }
}

// WithPolicyOnly restricts counts and findings to policy violations.
func WithPolicyOnly(on bool) Option {
	return func(a *Aggregator) { a.policyOnly = on }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithPreparedBy records who the report is prepared by.
func WithPreparedBy(name string) Option {
	return func(a *Aggregator) { a.preparedBy = name }
}

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) { a.tracer = t }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

// WithProgress sets the per-asset progress callback.
func WithProgress(fn Progress) Option {
	return func(a *Aggregator) { a.progress = fn }
}
