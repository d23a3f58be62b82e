package quality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/argie33/algo-sub006/internal/logger"
)

// AlertType identifies what condition fired.
type AlertType string

const (
	AlertQualityDegradation AlertType = "quality_degradation"
	AlertStaleData          AlertType = "stale_data"
	AlertIncompleteData     AlertType = "incomplete_data"
	AlertAccuracyFailure    AlertType = "accuracy_failure"
	AlertValidationFailures AlertType = "validation_failures"
)

// AlertSeverity ranks an alert.
type AlertSeverity string

const (
	AlertWarning AlertSeverity = "warning"
	AlertError   AlertSeverity = "error"
)

// Alert is a threshold breach notification. Alerts are not persisted; the
// dispatcher keeps a bounded ring of recent ones for inspection.
type Alert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Symbol    string        `json:"symbol"`
	Score     float64       `json:"score"`
	Threshold float64       `json:"threshold"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// Thresholds are the scores below which alerts fire. Accuracy breaches are
// error severity: they indicate bad data rather than mere staleness.
type Thresholds struct {
	MinOverall      float64 `yaml:"min_overall" json:"min_overall"`
	MinFreshness    float64 `yaml:"min_freshness" json:"min_freshness"`
	MinCompleteness float64 `yaml:"min_completeness" json:"min_completeness"`
	MinAccuracy     float64 `yaml:"min_accuracy" json:"min_accuracy"`
	MaxViolations   int64   `yaml:"max_violations" json:"max_violations"`
}

// DefaultThresholds returns the default alert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinOverall:      95,
		MinFreshness:    90,
		MinCompleteness: 95,
		MinAccuracy:     98,
		MaxViolations:   5,
	}
}

// Sink receives dispatched alerts. Failures are logged and never affect
// scoring state.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert *Alert) error
}

// LogSink writes alerts to the structured log. It is the default sink.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, alert *Alert) error {
	entry := s.log.WithFields(map[string]interface{}{
		"alert_id":  alert.ID,
		"type":      string(alert.Type),
		"symbol":    alert.Symbol,
		"score":     alert.Score,
		"threshold": alert.Threshold,
	})
	if alert.Severity == AlertError {
		entry.Error(alert.Message)
	} else {
		entry.Warn(alert.Message)
	}
	return nil
}

// Dispatcher evaluates alert thresholds and emits deduplicated alerts. An
// identical (symbol, type) pair is suppressed inside the cooldown window; a
// global rate limiter caps total emission during storms.
type Dispatcher struct {
	mu         sync.Mutex
	thresholds Thresholds
	cooldown   time.Duration
	lastFired  map[string]time.Time
	limiter    *rate.Limiter
	recent     []Alert
	recentCap  int
	sinks      []Sink
	log        logger.Logger
	now        func() time.Time
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(cfg *Config, log logger.Logger, now func() time.Time, sinks ...Sink) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	if len(sinks) == 0 {
		sinks = []Sink{NewLogSink(log)}
	}
	return &Dispatcher{
		thresholds: cfg.Thresholds,
		cooldown:   cfg.AlertCooldown.Std(),
		lastFired:  make(map[string]time.Time),
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.AlertsPerMinute)/60.0), cfg.AlertBurst),
		recentCap:  cfg.RecentAlertLimit,
		sinks:      sinks,
		log:        log,
		now:        now,
	}
}

// Evaluate derives candidate alerts from a validation result and the
// symbol's cumulative metrics. It does not dispatch.
func (d *Dispatcher) Evaluate(metrics QualityMetrics, result ValidationResult) []Alert {
	t := d.thresholds
	now := d.now()
	var alerts []Alert

	add := func(alertType AlertType, severity AlertSeverity, score, threshold float64, msg string) {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			Type:      alertType,
			Severity:  severity,
			Symbol:    result.Symbol,
			Score:     score,
			Threshold: threshold,
			Message:   msg,
			Timestamp: now,
		})
	}

	if result.Scores.Overall < t.MinOverall {
		add(AlertQualityDegradation, AlertWarning, result.Scores.Overall, t.MinOverall,
			fmt.Sprintf("quality score %.1f below threshold %.1f for %s", result.Scores.Overall, t.MinOverall, result.Symbol))
	}
	if result.Scores.Freshness < t.MinFreshness {
		add(AlertStaleData, AlertWarning, result.Scores.Freshness, t.MinFreshness,
			fmt.Sprintf("freshness score %.1f below threshold %.1f for %s", result.Scores.Freshness, t.MinFreshness, result.Symbol))
	}
	if result.Scores.Completeness < t.MinCompleteness {
		add(AlertIncompleteData, AlertWarning, result.Scores.Completeness, t.MinCompleteness,
			fmt.Sprintf("completeness score %.1f below threshold %.1f for %s", result.Scores.Completeness, t.MinCompleteness, result.Symbol))
	}
	if result.Scores.Accuracy < t.MinAccuracy {
		add(AlertAccuracyFailure, AlertError, result.Scores.Accuracy, t.MinAccuracy,
			fmt.Sprintf("accuracy score %.1f below threshold %.1f for %s", result.Scores.Accuracy, t.MinAccuracy, result.Symbol))
	}
	if t.MaxViolations > 0 && metrics.ViolationCount >= t.MaxViolations {
		add(AlertValidationFailures, AlertError, float64(metrics.ViolationCount), float64(t.MaxViolations),
			fmt.Sprintf("%d cumulative validation failures for %s", metrics.ViolationCount, result.Symbol))
	}

	return alerts
}

// Dispatch emits an alert unless the (symbol, type) pair is still cooling
// down or the global rate limit is exhausted. Returns whether the alert was
// emitted. The cooldown check and timestamp update happen atomically.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) bool {
	key := alert.Symbol + ":" + string(alert.Type)
	now := d.now()

	d.mu.Lock()
	if last, ok := d.lastFired[key]; ok && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		return false
	}
	if !d.limiter.AllowN(now, 1) {
		d.mu.Unlock()
		d.log.Warn("alert suppressed by rate limit",
			"symbol", alert.Symbol, "type", string(alert.Type))
		return false
	}
	d.lastFired[key] = now
	d.recent = append(d.recent, alert)
	if len(d.recent) > d.recentCap {
		d.recent = d.recent[len(d.recent)-d.recentCap:]
	}
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Send(ctx, &alert); err != nil {
			d.log.Error("alert delivery failed",
				"sink", sink.Name(),
				"alert_id", alert.ID,
				"error", err.Error())
		}
	}
	return true
}

// RecentAlerts returns up to limit most recently dispatched alerts, newest
// first.
func (d *Dispatcher) RecentAlerts(limit int) []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Alert, n)
	for i := 0; i < n; i++ {
		out[i] = d.recent[len(d.recent)-1-i]
	}
	return out
}
