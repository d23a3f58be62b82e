package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argie33/algo-sub006/internal/quality"
)

// Metrics holds the Prometheus instruments for the quality engine.
type Metrics struct {
	registry *prometheus.Registry

	validationsTotal   *prometheus.CounterVec
	violationsTotal    *prometheus.CounterVec
	alertsTotal        *prometheus.CounterVec
	qualityScore       *prometheus.GaugeVec
	subScore           *prometheus.GaugeVec
	systemQuality      prometheus.Gauge
	activeMonitors     prometheus.Gauge
	validationDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics creates the instruments on a private registry so independent
// engine instances (and tests) never collide.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		validationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quality_validations_total",
				Help: "Total number of record validations",
			},
			[]string{"symbol", "data_type"},
		),
		violationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quality_violations_total",
				Help: "Total number of rule violations",
			},
			[]string{"symbol", "kind"},
		),
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quality_alerts_total",
				Help: "Total number of dispatched quality alerts",
			},
			[]string{"type", "severity"},
		),
		qualityScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quality_score",
				Help: "Smoothed overall quality score per symbol",
			},
			[]string{"symbol"},
		),
		subScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quality_sub_score",
				Help: "Smoothed per-dimension quality score per symbol",
			},
			[]string{"symbol", "dimension"},
		),
		systemQuality: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quality_system_overall",
				Help: "System-wide mean quality score",
			},
		),
		activeMonitors: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quality_active_monitors",
				Help: "Number of symbols currently monitored",
			},
		),
		validationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quality_validation_duration_seconds",
				Help:    "Validation processing time",
				Buckets: prometheus.DefBuckets,
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request processing time",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Bind subscribes the instruments to a monitor's events and returns an
// unsubscribe function. The engine core stays metrics-agnostic; this bridge
// is the only place that knows both sides.
func (m *Metrics) Bind(monitor *quality.Monitor) func() {
	unsubValidated := monitor.Subscribe(quality.EventDataValidated, func(e quality.Event) {
		payload, ok := e.Payload.(quality.ValidationEvent)
		if !ok {
			return
		}
		m.ObserveValidation(payload)
	})
	unsubAlert := monitor.Subscribe(quality.EventQualityAlert, func(e quality.Event) {
		payload, ok := e.Payload.(quality.AlertEvent)
		if !ok {
			return
		}
		m.ObserveAlert(payload.Alert)
	})
	unsubStopped := monitor.Subscribe(quality.EventMonitoringStopped, func(e quality.Event) {
		m.RemoveSymbol(e.Symbol)
	})

	return func() {
		unsubValidated()
		unsubAlert()
		unsubStopped()
	}
}

// ObserveValidation records one validation outcome.
func (m *Metrics) ObserveValidation(event quality.ValidationEvent) {
	symbol := event.Result.Symbol
	m.validationsTotal.WithLabelValues(symbol, string(event.Result.DataType)).Inc()
	for _, v := range event.Result.Violations {
		m.violationsTotal.WithLabelValues(symbol, string(v.Kind)).Inc()
	}

	m.qualityScore.WithLabelValues(symbol).Set(event.Metrics.QualityScore)
	m.subScore.WithLabelValues(symbol, "freshness").Set(event.Metrics.FreshnessScore)
	m.subScore.WithLabelValues(symbol, "completeness").Set(event.Metrics.CompletenessScore)
	m.subScore.WithLabelValues(symbol, "accuracy").Set(event.Metrics.AccuracyScore)
	m.subScore.WithLabelValues(symbol, "consistency").Set(event.Metrics.ConsistencyScore)

	m.validationDuration.Observe(event.Duration.Seconds())
}

// ObserveAlert records one dispatched alert.
func (m *Metrics) ObserveAlert(alert quality.Alert) {
	m.alertsTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
}

// SetSystem publishes the system-wide summary gauges.
func (m *Metrics) SetSystem(sys quality.SystemMetrics) {
	m.systemQuality.Set(sys.OverallQuality)
	m.activeMonitors.Set(float64(sys.ActiveMonitors))
}

// RemoveSymbol drops a stopped symbol's gauges so stale series do not
// linger.
func (m *Metrics) RemoveSymbol(symbol string) {
	m.qualityScore.DeleteLabelValues(symbol)
	for _, dim := range []string{"freshness", "completeness", "accuracy", "consistency"} {
		m.subScore.DeleteLabelValues(symbol, dim)
	}
}

// Registry exposes the private registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
