package quality

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argie33/algo-sub006/internal/logger"
)

// fakeClock is a settable time source for cooldown tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureSink struct {
	mu    sync.Mutex
	sent  []Alert
	fail  error
	nameV string
}

func (s *captureSink) Name() string {
	if s.nameV != "" {
		return s.nameV
	}
	return "capture"
}

func (s *captureSink) Send(_ context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, *alert)
	return nil
}

func (s *captureSink) Sent() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestDispatcher(clock *fakeClock, sinks ...Sink) *Dispatcher {
	cfg := testConfig()
	return NewDispatcher(&cfg, logger.NewNop(), clock.Now, sinks...)
}

func TestEvaluateThresholdBreaches(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	d := newTestDispatcher(clock)

	result := ValidationResult{
		Symbol: "AAPL",
		Scores: SubScores{Overall: 80, Freshness: 85, Completeness: 90, Accuracy: 95, Consistency: 100},
	}

	alerts := d.Evaluate(QualityMetrics{Symbol: "AAPL"}, result)
	require.Len(t, alerts, 4)

	byType := map[AlertType]Alert{}
	for _, a := range alerts {
		byType[a.Type] = a
	}
	assert.Equal(t, AlertWarning, byType[AlertQualityDegradation].Severity)
	assert.Equal(t, AlertWarning, byType[AlertStaleData].Severity)
	assert.Equal(t, AlertWarning, byType[AlertIncompleteData].Severity)
	assert.Equal(t, AlertError, byType[AlertAccuracyFailure].Severity)
	assert.NotEmpty(t, byType[AlertQualityDegradation].ID)
}

func TestEvaluateHealthyResultProducesNothing(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	d := newTestDispatcher(clock)

	result := ValidationResult{
		Symbol: "AAPL",
		Scores: SubScores{Overall: 99, Freshness: 99, Completeness: 100, Accuracy: 100, Consistency: 100},
	}
	assert.Empty(t, d.Evaluate(QualityMetrics{Symbol: "AAPL"}, result))
}

func TestEvaluateCumulativeViolations(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	d := newTestDispatcher(clock)

	result := ValidationResult{
		Symbol: "AAPL",
		Scores: SubScores{Overall: 99, Freshness: 99, Completeness: 100, Accuracy: 100, Consistency: 100},
	}
	alerts := d.Evaluate(QualityMetrics{Symbol: "AAPL", ViolationCount: 7}, result)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertValidationFailures, alerts[0].Type)
	assert.Equal(t, AlertError, alerts[0].Severity)
}

func TestDispatchCooldownSuppressesDuplicates(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	sink := &captureSink{}
	d := newTestDispatcher(clock, sink)

	alert := Alert{ID: "a1", Type: AlertStaleData, Symbol: "AAPL", Severity: AlertWarning}

	assert.True(t, d.Dispatch(context.Background(), alert))
	assert.False(t, d.Dispatch(context.Background(), alert), "second alert inside cooldown must be suppressed")

	clock.Advance(4 * time.Minute)
	assert.False(t, d.Dispatch(context.Background(), alert), "4m is still inside the 5m cooldown")

	clock.Advance(2 * time.Minute)
	assert.True(t, d.Dispatch(context.Background(), alert), "cooldown elapsed, alert must fire again")

	assert.Len(t, sink.Sent(), 2)
}

func TestDispatchCooldownIsPerSymbolAndType(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	sink := &captureSink{}
	d := newTestDispatcher(clock, sink)

	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "AAPL"}))
	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertIncompleteData, Symbol: "AAPL"}),
		"different type for the same symbol has its own cooldown")
	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "MSFT"}),
		"same type for a different symbol has its own cooldown")
}

func TestDispatchRateLimitCapsBurst(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	cfg := testConfig()
	cfg.AlertBurst = 2
	cfg.AlertsPerMinute = 60
	sink := &captureSink{}
	d := NewDispatcher(&cfg, logger.NewNop(), clock.Now, sink)

	// distinct symbols so the cooldown never applies
	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "S1"}))
	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "S2"}))
	assert.False(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "S3"}),
		"burst exhausted, third alert at the same instant must be limited")

	clock.Advance(2 * time.Second) // 60/min refills a token per second
	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "S3"}))
}

func TestDispatchSinkFailureDoesNotBlock(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	failing := &captureSink{fail: context.DeadlineExceeded, nameV: "failing"}
	working := &captureSink{nameV: "working"}
	d := newTestDispatcher(clock, failing, working)

	assert.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: "AAPL"}))
	assert.Len(t, working.Sent(), 1)
}

func TestRecentAlertsNewestFirst(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	d := newTestDispatcher(clock, &captureSink{})

	for _, sym := range []string{"S1", "S2", "S3"} {
		require.True(t, d.Dispatch(context.Background(), Alert{ID: sym, Type: AlertStaleData, Symbol: sym}))
	}

	recent := d.RecentAlerts(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "S3", recent[0].Symbol)
	assert.Equal(t, "S2", recent[1].Symbol)

	assert.Len(t, d.RecentAlerts(0), 3)
}

func TestRecentAlertsRingIsBounded(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	cfg := testConfig()
	cfg.RecentAlertLimit = 3
	cfg.AlertBurst = 100
	cfg.AlertsPerMinute = 6000
	d := NewDispatcher(&cfg, logger.NewNop(), clock.Now, &captureSink{})

	for i := 0; i < 10; i++ {
		sym := "SYM" + string(rune('A'+i))
		require.True(t, d.Dispatch(context.Background(), Alert{Type: AlertStaleData, Symbol: sym}))
	}

	assert.Len(t, d.RecentAlerts(0), 3)
}
