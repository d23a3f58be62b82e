package quality

import (
	"time"
)

// DataType identifies which rule set applies to a record.
type DataType string

const (
	DataTypeStockPrice  DataType = "stock_price"
	DataTypeCryptoPrice DataType = "crypto_price"
	DataTypeOptionsData DataType = "options_data"
)

// Record is a keyed bag of market-data fields supplied by the caller. The
// engine only inspects fields named in the active rule set.
type Record map[string]interface{}

// Has reports whether a field is present and non-nil.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Float extracts a numeric field.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// String extracts a string field.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Timestamp extracts the record's timestamp field. Accepted encodings:
// time.Time, RFC3339 string, unix seconds or unix milliseconds.
func (r Record) Timestamp() (time.Time, bool) {
	v, ok := r["timestamp"]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch ts := v.(type) {
	case time.Time:
		return ts, !ts.IsZero()
	case string:
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339Nano, ts)
		}
		return parsed, err == nil
	case int64:
		return fromUnix(float64(ts)), true
	case int:
		return fromUnix(float64(ts)), true
	case float64:
		return fromUnix(ts), true
	default:
		return time.Time{}, false
	}
}

// fromUnix interprets large magnitudes as milliseconds, otherwise seconds.
func fromUnix(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v))
	}
	return time.Unix(int64(v), 0)
}

// ViolationKind classifies which quality dimension a violation belongs to.
type ViolationKind string

const (
	ViolationCompleteness ViolationKind = "completeness"
	ViolationAccuracy     ViolationKind = "accuracy"
	ViolationFreshness    ViolationKind = "freshness"
	ViolationConsistency  ViolationKind = "consistency"
)

// Violation describes a single failed check.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Field    string        `json:"field,omitempty"`
	Observed interface{}   `json:"observed,omitempty"`
	Expected interface{}   `json:"expected,omitempty"`
	Message  string        `json:"message"`
}

// SubScores holds the four dimension scores plus the weighted overall score.
// All values are in [0, 100].
type SubScores struct {
	Freshness    float64 `json:"freshness"`
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Overall      float64 `json:"overall"`
}

// ValidationResult is the per-record outcome returned to the caller and fed
// into state updates.
type ValidationResult struct {
	Timestamp  time.Time   `json:"timestamp"`
	Symbol     string      `json:"symbol"`
	DataType   DataType    `json:"data_type"`
	ProviderID string      `json:"provider_id,omitempty"`
	Scores     SubScores   `json:"scores"`
	Violations []Violation `json:"violations,omitempty"`
}

// Trend classifies a symbol's short-horizon quality direction.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// QualityMetrics is the per-symbol mutable state, smoothed with an
// exponentially weighted moving average across validations.
type QualityMetrics struct {
	Symbol            string      `json:"symbol"`
	DataType          DataType    `json:"data_type"`
	ProviderID        string      `json:"provider_id,omitempty"`
	QualityScore      float64     `json:"quality_score"`
	FreshnessScore    float64     `json:"freshness_score"`
	CompletenessScore float64     `json:"completeness_score"`
	AccuracyScore     float64     `json:"accuracy_score"`
	ConsistencyScore  float64     `json:"consistency_score"`
	ValidationCount   int64       `json:"validation_count"`
	ViolationCount    int64       `json:"violation_count"`
	LastDataTimestamp time.Time   `json:"last_data_timestamp"`
	LastValidation    time.Time   `json:"last_validation"`
	RecentIssues      []Violation `json:"recent_issues,omitempty"`
	Trend             Trend       `json:"trend"`
}

// HistoryEntry is one per-validation history sample. Price and Volume carry
// the fields needed for the next record's consistency checks; nil means the
// record did not provide the field.
type HistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	QualityScore   float64   `json:"quality_score"`
	SubScores      SubScores `json:"sub_scores"`
	ViolationCount int       `json:"violation_count"`
	Price          *float64  `json:"price,omitempty"`
	Volume         *float64  `json:"volume,omitempty"`
}

// SymbolSummary is the per-symbol slice of the system-wide snapshot.
type SymbolSummary struct {
	QualityScore float64  `json:"quality_score"`
	DataType     DataType `json:"data_type"`
	Trend        Trend    `json:"trend"`
}

// SystemMetrics is the system-wide summary recomputed on every aggregation
// tick. It is rebuilt from scratch each time rather than updated
// incrementally, so it can never drift from the per-symbol state.
type SystemMetrics struct {
	OverallQuality   float64                  `json:"overall_quality"`
	TotalValidations int64                    `json:"total_validations"`
	TotalViolations  int64                    `json:"total_violations"`
	ActiveMonitors   int                      `json:"active_monitors"`
	LastUpdate       time.Time                `json:"last_update"`
	Symbols          map[string]SymbolSummary `json:"symbols"`
}
