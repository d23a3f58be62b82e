package quality

import (
	"context"
	"time"

	apperrors "github.com/argie33/algo-sub006/internal/errors"
	"github.com/argie33/algo-sub006/internal/logger"
)

// Monitor is the data quality engine. It validates incoming market-data
// records against per-data-type rule sets, maintains smoothed per-symbol
// quality metrics and bounded history, raises rate-limited alerts, and
// publishes engine events.
//
// A Monitor is an explicit instance: embedding services may run several
// independent monitors side by side.
type Monitor struct {
	cfg        Config
	registry   *RuleRegistry
	scorer     *Scorer
	history    *HistoryStore
	store      *MetricStore
	dispatcher *Dispatcher
	aggregator *Aggregator
	bus        *EventBus
	log        logger.Logger
	now        func() time.Time
}

type monitorOptions struct {
	now      func() time.Time
	sinks    []Sink
	ruleSets []ValidationRuleSet
}

// Option customizes monitor construction.
type Option func(*monitorOptions)

// WithClock injects the time source. Used by tests to make freshness and
// cooldown behavior deterministic.
func WithClock(now func() time.Time) Option {
	return func(o *monitorOptions) { o.now = now }
}

// WithSinks sets the alert sinks. Without this option alerts go to the log.
func WithSinks(sinks ...Sink) Option {
	return func(o *monitorOptions) { o.sinks = sinks }
}

// WithRuleSets registers additional rule sets, overriding built-ins with the
// same data type.
func WithRuleSets(sets ...ValidationRuleSet) Option {
	return func(o *monitorOptions) { o.ruleSets = append(o.ruleSets, sets...) }
}

// NewMonitor creates a quality monitor. The built-in rule sets are always
// registered first, then any rule sets from config, then rule sets passed
// via options; later registrations override earlier ones per data type.
func NewMonitor(cfg Config, log logger.Logger, opts ...Option) (*Monitor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid quality config", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	options := monitorOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	sets := DefaultRuleSets()
	for _, rc := range cfg.RuleSets {
		sets = append(sets, rc.RuleSet())
	}
	sets = append(sets, options.ruleSets...)

	registry, err := NewRuleRegistry(sets...)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid rule set", err)
	}

	store := NewMetricStore()
	m := &Monitor{
		cfg:        cfg,
		registry:   registry,
		scorer:     NewScorer(cfg.Weights, options.now),
		history:    NewHistoryStore(cfg.HistoryLimit),
		store:      store,
		dispatcher: NewDispatcher(&cfg, log, options.now, options.sinks...),
		aggregator: NewAggregator(store, options.now),
		bus:        NewEventBus(log),
		log:        log,
		now:        options.now,
	}
	return m, nil
}

// StartMonitoring registers a symbol ahead of its first record. Validate
// also registers lazily; explicit registration just pins the data type and
// provider. Starting an already-monitored symbol is a no-op.
func (m *Monitor) StartMonitoring(symbol string, dataType DataType, providerID string) error {
	if symbol == "" {
		return apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "symbol is required", nil)
	}
	if _, ok := m.registry.GetRuleSet(dataType); !ok {
		return apperrors.NewConfigurationError("no rule set for data type "+string(dataType), nil)
	}

	_, created := m.store.getOrCreate(symbol, dataType, providerID)
	if created {
		m.log.Info("monitoring started", "symbol", symbol, "data_type", string(dataType))
		m.publishMonitoringEvent(EventMonitoringStarted, symbol, dataType, providerID)
	}
	return nil
}

// Validate scores one incoming record for a symbol and folds the result into
// the symbol's state. A record that fails every check still produces a (low)
// score: validation failure is data, not a system error. The only error this
// returns is a ConfigurationError for an unresolvable rule set.
func (m *Monitor) Validate(symbol string, record Record, providerID string) (ValidationResult, error) {
	if symbol == "" {
		return ValidationResult{}, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "symbol is required", nil)
	}
	start := m.now()

	dataType, ruleSet, err := m.resolveRuleSet(symbol, record)
	if err != nil {
		m.log.Error("dropping record: no resolvable rule set", "symbol", symbol)
		return ValidationResult{}, err
	}

	// Acquire the symbol's state. Loop in case a concurrent StopMonitoring
	// removed the state between lookup and lock.
	var st *symbolState
	created := false
	for {
		var c bool
		st, c = m.store.getOrCreate(symbol, dataType, providerID)
		created = created || c
		st.mu.Lock()
		if !st.removed {
			break
		}
		st.mu.Unlock()
	}

	prior, _ := m.history.Latest(symbol)
	scores, violations := m.scorer.Score(record, ruleSet, prior)
	result := ValidationResult{
		Timestamp:  m.now(),
		Symbol:     symbol,
		DataType:   st.metrics.DataType,
		ProviderID: providerID,
		Scores:     scores,
		Violations: violations,
	}

	window := m.history.RecentWindow(symbol, m.cfg.TrendWindow)
	dataTS, _ := record.Timestamp()
	applyLocked(st, result, dataTS, window, &m.cfg)

	m.history.Append(symbol, HistoryEntry{
		Timestamp:      result.Timestamp,
		QualityScore:   scores.Overall,
		SubScores:      scores,
		ViolationCount: len(violations),
		Price:          recordFloat(record, "price"),
		Volume:         recordFloat(record, "volume"),
	})
	metrics := copyMetrics(st.metrics)
	st.mu.Unlock()

	if created {
		m.publishMonitoringEvent(EventMonitoringStarted, symbol, metrics.DataType, providerID)
	}

	for _, alert := range m.dispatcher.Evaluate(metrics, result) {
		if m.dispatcher.Dispatch(context.Background(), alert) {
			m.bus.Publish(Event{
				Type:      EventQualityAlert,
				Timestamp: m.now(),
				Symbol:    symbol,
				Payload:   AlertEvent{Alert: alert},
			})
		}
	}

	m.bus.Publish(Event{
		Type:      EventDataValidated,
		Timestamp: result.Timestamp,
		Symbol:    symbol,
		Payload: ValidationEvent{
			Result:   result,
			Metrics:  metrics,
			Duration: m.now().Sub(start),
		},
	})

	return result, nil
}

// resolveRuleSet maps a record to its rule set: the symbol's registered
// data type first, then the shape-based auto-detector.
func (m *Monitor) resolveRuleSet(symbol string, record Record) (DataType, *ValidationRuleSet, error) {
	if st, ok := m.store.get(symbol); ok {
		if rs, found := m.registry.GetRuleSet(st.metrics.DataType); found {
			return st.metrics.DataType, rs, nil
		}
	}
	detected := DetectDataType(symbol, record)
	if rs, found := m.registry.GetRuleSet(detected); found {
		return detected, rs, nil
	}
	return "", nil, apperrors.NewConfigurationError(
		"no rule set for detected data type "+string(detected), nil).WithContext("symbol", symbol)
}

// StopMonitoring removes a symbol's metrics and history. It waits for any
// in-flight validation on the symbol to complete first, so state cannot be
// resurrected mid-write.
func (m *Monitor) StopMonitoring(symbol string) {
	st, ok := m.store.get(symbol)
	if !ok {
		return
	}

	st.mu.Lock()
	if st.removed {
		st.mu.Unlock()
		return
	}
	st.removed = true
	dataType := st.metrics.DataType
	providerID := st.metrics.ProviderID
	m.store.remove(symbol)
	m.history.Remove(symbol)
	st.mu.Unlock()

	m.log.Info("monitoring stopped", "symbol", symbol)
	m.publishMonitoringEvent(EventMonitoringStopped, symbol, dataType, providerID)
}

// GetQualityMetrics returns a copy of a symbol's current metrics.
func (m *Monitor) GetQualityMetrics(symbol string) (QualityMetrics, bool) {
	return m.store.Get(symbol)
}

// GetAllQualityMetrics returns a snapshot of every tracked symbol's metrics.
func (m *Monitor) GetAllQualityMetrics() []QualityMetrics {
	return m.store.Snapshot()
}

// GetSystemMetrics returns the system summary as of the last aggregation
// tick.
func (m *Monitor) GetSystemMetrics() SystemMetrics {
	return m.aggregator.Current()
}

// Tick recomputes the system summary. Invoked by the embedding service's
// scheduler at its chosen cadence.
func (m *Monitor) Tick() SystemMetrics {
	return m.aggregator.Tick()
}

// GetHistory returns the symbol's history entries within the trailing
// window, oldest first. A non-positive window returns the full retained
// ring.
func (m *Monitor) GetHistory(symbol string, window time.Duration) []HistoryEntry {
	if window <= 0 {
		return m.history.RecentWindow(symbol, 0)
	}
	return m.history.Since(symbol, m.now().Add(-window))
}

// RecentAlerts returns the most recently dispatched alerts, newest first.
func (m *Monitor) RecentAlerts(limit int) []Alert {
	return m.dispatcher.RecentAlerts(limit)
}

// Subscribe registers an event handler and returns its unsubscribe func.
func (m *Monitor) Subscribe(eventType EventType, handler Handler) func() {
	return m.bus.Subscribe(eventType, handler)
}

// Config returns the monitor's effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

func (m *Monitor) publishMonitoringEvent(eventType EventType, symbol string, dataType DataType, providerID string) {
	m.bus.Publish(Event{
		Type:      eventType,
		Timestamp: m.now(),
		Symbol:    symbol,
		Payload: MonitoringEvent{
			Symbol:     symbol,
			DataType:   dataType,
			ProviderID: providerID,
		},
	})
}

func recordFloat(record Record, field string) *float64 {
	if v, ok := record.Float(field); ok {
		return &v
	}
	return nil
}
