package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Evaluations  *prometheus.CounterVec
	Alerts       *prometheus.CounterVec
	Notified     *prometheus.CounterVec
	FetchErrors  *prometheus.CounterVec
	FetchLatency *prometheus.HistogramVec
	RowsFetched  *prometheus.CounterVec
	Campaigns    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Alert and analytics evaluations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Alerts produced by the rule engine",
			},
			[]string{"type", "severity"},
		),
		Notified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Alert digests dispatched by outcome",
			},
			[]string{"outcome"},
		),
		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Metric row fetch failures by window",
			},
			[]string{"window"},
		),
		FetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_latency_seconds",
				Help:      "Metric row fetch latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"window"},
		),
		RowsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_fetched_total",
				Help:      "Metric rows fetched by window",
			},
			[]string{"window"},
		),
		Campaigns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "campaigns_evaluated",
				Help:      "Campaign rollups in the most recent evaluation",
			},
		),
		gatherer: reg,
	}
}

// ObserveEvaluation counts one evaluation.
func (m *Metrics) ObserveEvaluation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(kind, outcome).Inc()
}

// ObserveAlert counts one alert.
func (m *Metrics) ObserveAlert(alertType, severity string) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(alertType, severity).Inc()
}

// ObserveNotification counts one digest dispatch.
func (m *Metrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.Notified.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a row fetch for window ("current" or "comparison").
func (m *Metrics) ObserveFetch(window string, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchLatency.WithLabelValues(window).Observe(elapsed.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(window).Inc()
		return
	}
	m.RowsFetched.WithLabelValues(window).Add(float64(rows))
}

// SetCampaigns records the rollup count of the latest evaluation.
func (m *Metrics) SetCampaigns(n int) {
	if m == nil {
		return
	}
	m.Campaigns.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
