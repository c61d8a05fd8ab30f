// Package metrics records run measurements in a private Prometheus
// registry. A one-shot CLI has nothing to scrape it, so the registry is
// written out in the node_exporter textfile format at the end of a run.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

const namespace = "vccollections"

// Metrics is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	assetsTotal    *prometheus.CounterVec
	retriesTotal   prometheus.Counter
	findingsTotal  *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	assetSeconds   *prometheus.HistogramVec
	requestSeconds *prometheus.HistogramVec

	reportFindings *prometheus.GaugeVec
	reportAssets   prometheus.Gauge
	reportPartial  prometheus.Gauge
	lastRun        prometheus.Gauge
}

// New creates and registers the collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_total",
			Help:      "Collection assets processed, by outcome",
		}, []string{"outcome"}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_retries_total",
			Help:      "Per-asset fetch retries after transient failures",
		}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_collected_total",
			Help:      "Findings fetched, by scan type",
		}, []string{"scan_type"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Platform API requests, by route and status code (0 for transport failures)",
		}, []string{"route", "code"}),
		assetSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_fetch_seconds",
			Help:      "Time to fetch one asset including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_seconds",
			Help:      "Platform API response time",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		reportFindings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_findings",
			Help:      "Findings in the last report, by severity",
		}, []string{"severity"}),
		reportAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_assets",
			Help:      "Member assets in the last report",
		}),
		reportPartial: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_partial_assets",
			Help:      "Assets with missing data in the last report, unfetched or with an incomplete finding list",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Generation time of the last report",
		}),
	}

	collectors := []prometheus.Collector{
		m.assetsTotal,
		m.retriesTotal,
		m.findingsTotal,
		m.requestsTotal,
		m.assetSeconds,
		m.requestSeconds,
		m.reportFindings,
		m.reportAssets,
		m.reportPartial,
		m.lastRun,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return m, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// AssetCompleted records one finished asset.
func (m *Metrics) AssetCompleted(outcome string, elapsed time.Duration) {
	m.assetsTotal.WithLabelValues(outcome).Inc()
	m.assetSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RetryAttempted records one per-asset retry.
func (m *Metrics) RetryAttempted() { m.retriesTotal.Inc() }

// FindingsCollected records n fetched findings of type st.
func (m *Metrics) FindingsCollected(st finding.ScanType, n int) {
	m.findingsTotal.WithLabelValues(st.String()).Add(float64(n))
}

// ObserveRequest records one API response. Its signature matches the
// client's observer hook.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveReport sets the report gauges from a finished model.
func (m *Metrics) ObserveReport(r *report.Model) {
	for _, sev := range finding.Ordered() {
		m.reportFindings.WithLabelValues(sev.String()).Set(float64(r.TotalsBySeverity.Get(sev)))
	}
	m.reportAssets.Set(float64(len(r.PerAsset)))
	m.reportPartial.Set(float64(r.DegradedCount()))
	m.lastRun.Set(float64(r.GeneratedAt.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
