package quality

import (
	"sync"
	"time"
)

// symbolState is the mutable per-symbol state. Its mutex serializes
// validations for the same symbol; validations for different symbols proceed
// in parallel.
type symbolState struct {
	mu      sync.Mutex
	metrics QualityMetrics
	removed bool
}

// MetricStore holds every tracked symbol's QualityMetrics behind per-symbol
// locks. The outer lock only guards the symbol map, never the state inside.
type MetricStore struct {
	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// NewMetricStore creates an empty metric store.
func NewMetricStore() *MetricStore {
	return &MetricStore{symbols: make(map[string]*symbolState)}
}

// getOrCreate returns the state for a symbol, lazily creating it. The second
// return reports whether the entry was created by this call.
func (s *MetricStore) getOrCreate(symbol string, dataType DataType, providerID string) (*symbolState, bool) {
	s.mu.RLock()
	st, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return st, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.symbols[symbol]; ok {
		return st, false
	}
	st = &symbolState{
		metrics: QualityMetrics{
			Symbol:     symbol,
			DataType:   dataType,
			ProviderID: providerID,
			Trend:      TrendStable,
		},
	}
	s.symbols[symbol] = st
	return st, true
}

// get returns the state for a symbol if tracked.
func (s *MetricStore) get(symbol string) (*symbolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.symbols[symbol]
	return st, ok
}

// remove drops a symbol from the map. The caller must hold the symbol's
// state lock so in-flight validations have drained.
func (s *MetricStore) remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.symbols, symbol)
}

// Get returns a copy of a symbol's metrics.
func (s *MetricStore) Get(symbol string) (QualityMetrics, bool) {
	st, ok := s.get(symbol)
	if !ok {
		return QualityMetrics{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.removed {
		return QualityMetrics{}, false
	}
	return copyMetrics(st.metrics), true
}

// Snapshot returns a copy of every tracked symbol's metrics. Each symbol
// lock is held only long enough to copy that one entry, so a long snapshot
// never blocks unrelated validations.
func (s *MetricStore) Snapshot() []QualityMetrics {
	s.mu.RLock()
	states := make([]*symbolState, 0, len(s.symbols))
	for _, st := range s.symbols {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]QualityMetrics, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if !st.removed {
			out = append(out, copyMetrics(st.metrics))
		}
		st.mu.Unlock()
	}
	return out
}

// Len reports the number of tracked symbols.
func (s *MetricStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}

// applyLocked folds a validation result into the symbol's metrics. The
// caller holds st.mu. window is the symbol's recent history (oldest first),
// taken before this result was appended; it drives trend classification.
// dataTS is the record's own timestamp when it had a valid one.
func applyLocked(st *symbolState, result ValidationResult, dataTS time.Time, window []HistoryEntry, cfg *Config) {
	m := &st.metrics

	first := m.ValidationCount == 0
	m.ValidationCount++
	if len(result.Violations) > 0 {
		m.ViolationCount++
	}
	m.LastValidation = result.Timestamp
	if !dataTS.IsZero() {
		m.LastDataTimestamp = dataTS
	}

	if first {
		// Seed from the first sample so the EMA does not ramp up from zero.
		m.QualityScore = result.Scores.Overall
		m.FreshnessScore = result.Scores.Freshness
		m.CompletenessScore = result.Scores.Completeness
		m.AccuracyScore = result.Scores.Accuracy
		m.ConsistencyScore = result.Scores.Consistency
	} else {
		alpha := cfg.SmoothingAlpha
		m.QualityScore = ema(alpha, result.Scores.Overall, m.QualityScore)
		m.FreshnessScore = ema(alpha, result.Scores.Freshness, m.FreshnessScore)
		m.CompletenessScore = ema(alpha, result.Scores.Completeness, m.CompletenessScore)
		m.AccuracyScore = ema(alpha, result.Scores.Accuracy, m.AccuracyScore)
		m.ConsistencyScore = ema(alpha, result.Scores.Consistency, m.ConsistencyScore)
	}

	m.Trend = classifyTrend(result.Scores.Overall, window, cfg)

	if len(result.Violations) > 0 {
		m.RecentIssues = append(m.RecentIssues, result.Violations...)
		if len(m.RecentIssues) > cfg.RecentIssueLimit {
			m.RecentIssues = m.RecentIssues[len(m.RecentIssues)-cfg.RecentIssueLimit:]
		}
	}
}

// classifyTrend compares the current sample against the mean of the recent
// window, with hysteresis so score jitter does not flap the classification.
func classifyTrend(current float64, window []HistoryEntry, cfg *Config) Trend {
	if len(window) < cfg.TrendWindow {
		return TrendStable
	}
	recent := window
	if len(recent) > cfg.TrendWindow {
		recent = recent[len(recent)-cfg.TrendWindow:]
	}
	var sum float64
	for _, e := range recent {
		sum += e.QualityScore
	}
	mean := sum / float64(len(recent))

	switch {
	case current > mean+cfg.TrendHysteresis:
		return TrendImproving
	case current < mean-cfg.TrendHysteresis:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func ema(alpha, sample, old float64) float64 {
	return alpha*sample + (1-alpha)*old
}

func copyMetrics(m QualityMetrics) QualityMetrics {
	out := m
	if m.RecentIssues != nil {
		out.RecentIssues = make([]Violation, len(m.RecentIssues))
		copy(out.RecentIssues, m.RecentIssues)
	}
	return out
}
