package quality

import (
	"sync"
	"time"
)

// Aggregator folds all per-symbol metrics into one system-wide summary. It
// only ever reads short-lived per-symbol snapshots, never symbol locks
// across the whole pass.
type Aggregator struct {
	mu      sync.RWMutex
	store   *MetricStore
	current SystemMetrics
	now     func() time.Time
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store *MetricStore, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		store: store,
		now:   now,
		current: SystemMetrics{
			Symbols: make(map[string]SymbolSummary),
		},
	}
}

// Tick recomputes the system metrics from the current per-symbol state and
// returns the new summary.
func (a *Aggregator) Tick() SystemMetrics {
	snapshot := a.store.Snapshot()

	metrics := SystemMetrics{
		ActiveMonitors: len(snapshot),
		LastUpdate:     a.now(),
		Symbols:        make(map[string]SymbolSummary, len(snapshot)),
	}

	var scoreSum float64
	for _, m := range snapshot {
		scoreSum += m.QualityScore
		metrics.TotalValidations += m.ValidationCount
		metrics.TotalViolations += m.ViolationCount
		metrics.Symbols[m.Symbol] = SymbolSummary{
			QualityScore: m.QualityScore,
			DataType:     m.DataType,
			Trend:        m.Trend,
		}
	}
	if len(snapshot) > 0 {
		metrics.OverallQuality = scoreSum / float64(len(snapshot))
	}

	a.mu.Lock()
	a.current = metrics
	a.mu.Unlock()

	return metrics
}

// Current returns the most recently computed system metrics.
func (a *Aggregator) Current() SystemMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := a.current
	out.Symbols = make(map[string]SymbolSummary, len(a.current.Symbols))
	for k, v := range a.current.Symbols {
		out.Symbols[k] = v
	}
	return out
}
