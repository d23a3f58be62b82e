package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorTick(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := NewMetricStore()
	agg := NewAggregator(store, func() time.Time { return now })

	aapl, _ := store.getOrCreate("AAPL", DataTypeStockPrice, "")
	aapl.metrics.QualityScore = 90
	aapl.metrics.ValidationCount = 10
	aapl.metrics.ViolationCount = 2
	aapl.metrics.Trend = TrendDegrading

	btc, _ := store.getOrCreate("BTC-USD", DataTypeCryptoPrice, "")
	btc.metrics.QualityScore = 100
	btc.metrics.ValidationCount = 5

	sys := agg.Tick()

	assert.Equal(t, 2, sys.ActiveMonitors)
	assert.InDelta(t, 95.0, sys.OverallQuality, 0.001)
	assert.Equal(t, int64(15), sys.TotalValidations)
	assert.Equal(t, int64(2), sys.TotalViolations)
	assert.Equal(t, now, sys.LastUpdate)

	require.Contains(t, sys.Symbols, "AAPL")
	assert.Equal(t, TrendDegrading, sys.Symbols["AAPL"].Trend)
	assert.Equal(t, DataTypeCryptoPrice, sys.Symbols["BTC-USD"].DataType)
}

func TestAggregatorEmptyStore(t *testing.T) {
	agg := NewAggregator(NewMetricStore(), nil)

	sys := agg.Tick()
	assert.Equal(t, 0, sys.ActiveMonitors)
	assert.Equal(t, 0.0, sys.OverallQuality)
	assert.Empty(t, sys.Symbols)
}

func TestAggregatorCurrentIsACopy(t *testing.T) {
	store := NewMetricStore()
	st, _ := store.getOrCreate("AAPL", DataTypeStockPrice, "")
	st.metrics.QualityScore = 90

	agg := NewAggregator(store, nil)
	agg.Tick()

	snap := agg.Current()
	snap.Symbols["AAPL"] = SymbolSummary{QualityScore: 0}

	assert.Equal(t, 90.0, agg.Current().Symbols["AAPL"].QualityScore)
}

func TestAggregatorCurrentBeforeFirstTick(t *testing.T) {
	agg := NewAggregator(NewMetricStore(), nil)

	sys := agg.Current()
	assert.NotNil(t, sys.Symbols)
	assert.Equal(t, 0, sys.ActiveMonitors)
}
