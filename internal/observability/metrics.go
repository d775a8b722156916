package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iamwavecut/reportbot/internal/moderation"
)

const namespace = "reportbot"

// Metrics owns a private registry with the moderation counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	reports             *prometheus.CounterVec
	verdicts            *prometheus.CounterVec
	enforcementFailures *prometheus.CounterVec
	classification      prometheus.Histogram
	pendingApprovals    prometheus.Gauge
	activeSanctions     *prometheus.GaugeVec
}

var _ moderation.Telemetry = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_total",
				Help:      "Report commands by gate result",
			},
			[]string{"command", "result"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Classifier verdicts by action",
			},
			[]string{"action"},
		),
		enforcementFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enforcement_failures_total",
				Help:      "Platform operations that failed",
			},
			[]string{"operation"},
		),
		classification: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classification_duration_seconds",
				Help:      "Time spent waiting for the classifier",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		pendingApprovals: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_approvals",
				Help:      "Ban reviews waiting for an administrator",
			},
		),
		activeSanctions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sanctions",
				Help:      "Mutes and bans the bot can still reverse",
			},
			[]string{"kind"},
		),
	}
	m.registry.MustRegister(
		m.reports,
		m.verdicts,
		m.enforcementFailures,
		m.classification,
		m.pendingApprovals,
		m.activeSanctions,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Report(command, result string) {
	m.reports.WithLabelValues(command, result).Inc()
}

func (m *Metrics) Verdict(action string) {
	m.verdicts.WithLabelValues(action).Inc()
}

func (m *Metrics) EnforcementFailed(operation string) {
	m.enforcementFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) Classification(d time.Duration) {
	m.classification.Observe(d.Seconds())
}

func (m *Metrics) PendingApprovals(n int) {
	m.pendingApprovals.Set(float64(n))
}

func (m *Metrics) ActiveSanctions(kind string, n int) {
	m.activeSanctions.WithLabelValues(kind).Set(float64(n))
}
