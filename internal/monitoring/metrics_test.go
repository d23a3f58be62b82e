package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argie33/algo-sub006/internal/logger"
	"github.com/argie33/algo-sub006/internal/quality"
)

func TestObserveValidation(t *testing.T) {
	m := NewMetrics()

	m.ObserveValidation(quality.ValidationEvent{
		Result: quality.ValidationResult{
			Symbol:   "AAPL",
			DataType: quality.DataTypeStockPrice,
			Violations: []quality.Violation{
				{Kind: quality.ViolationFreshness},
				{Kind: quality.ViolationCompleteness},
			},
		},
		Metrics: quality.QualityMetrics{
			Symbol:         "AAPL",
			QualityScore:   92.5,
			FreshnessScore: 80,
		},
		Duration: 3 * time.Millisecond,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationsTotal.WithLabelValues("AAPL", "stock_price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violationsTotal.WithLabelValues("AAPL", "freshness")))
	assert.Equal(t, 92.5, testutil.ToFloat64(m.qualityScore.WithLabelValues("AAPL")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.subScore.WithLabelValues("AAPL", "freshness")))
}

func TestObserveAlertAndSystem(t *testing.T) {
	m := NewMetrics()

	m.ObserveAlert(quality.Alert{Type: quality.AlertStaleData, Severity: quality.AlertWarning})
	m.ObserveAlert(quality.Alert{Type: quality.AlertStaleData, Severity: quality.AlertWarning})
	m.SetSystem(quality.SystemMetrics{OverallQuality: 97.5, ActiveMonitors: 4})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsTotal.WithLabelValues("stale_data", "warning")))
	assert.Equal(t, 97.5, testutil.ToFloat64(m.systemQuality))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.activeMonitors))
}

func TestRemoveSymbol(t *testing.T) {
	m := NewMetrics()
	m.qualityScore.WithLabelValues("AAPL").Set(90)
	m.subScore.WithLabelValues("AAPL", "freshness").Set(90)

	m.RemoveSymbol("AAPL")

	count, err := testutil.GatherAndCount(m.registry, "quality_score", "quality_sub_score")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBindObservesMonitorEvents(t *testing.T) {
	m := NewMetrics()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	monitor, err := quality.NewMonitor(quality.Config{}, logger.NewNop(),
		quality.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	unbind := m.Bind(monitor)
	defer unbind()

	record := quality.Record{
		"symbol":    "AAPL",
		"price":     187.42,
		"volume":    1250000.0,
		"timestamp": now,
	}
	_, err = monitor.Validate("AAPL", record, "polygon")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationsTotal.WithLabelValues("AAPL", "stock_price")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.qualityScore.WithLabelValues("AAPL")))

	monitor.StopMonitoring("AAPL")
	count, err := testutil.GatherAndCount(m.registry, "quality_score")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBindUnsubscribeStopsObservation(t *testing.T) {
	m := NewMetrics()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	monitor, err := quality.NewMonitor(quality.Config{}, logger.NewNop(),
		quality.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	unbind := m.Bind(monitor)
	unbind()

	record := quality.Record{
		"symbol":    "AAPL",
		"price":     187.42,
		"volume":    1250000.0,
		"timestamp": now,
	}
	_, err = monitor.Validate("AAPL", record, "")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.registry, "quality_validations_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
