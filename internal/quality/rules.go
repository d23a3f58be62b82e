package quality

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RangeRule bounds a numeric field. Min and Max are inclusive.
type RangeRule struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// ValidationRuleSet is the per-data-type rule set. Immutable after
// registration.
type ValidationRuleSet struct {
	DataType       DataType             `yaml:"data_type" json:"data_type"`
	RequiredFields []string             `yaml:"required_fields" json:"required_fields"`
	Ranges         map[string]RangeRule `yaml:"ranges" json:"ranges,omitempty"`
	Patterns       map[string]string    `yaml:"patterns" json:"patterns,omitempty"`
	MaxAge         time.Duration        `yaml:"-" json:"max_age"`
	MaxPriceChange float64              `yaml:"max_price_change" json:"max_price_change"` // fractional, e.g. 0.10
	MaxVolumeSpike float64              `yaml:"max_volume_spike" json:"max_volume_spike"` // ratio vs prior volume

	compiled map[string]*regexp.Regexp
}

// compile builds the pattern matchers. Called once at registration.
func (rs *ValidationRuleSet) compile() error {
	rs.compiled = make(map[string]*regexp.Regexp, len(rs.Patterns))
	for field, pattern := range rs.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern for field %q: %w", field, err)
		}
		rs.compiled[field] = re
	}
	return nil
}

func (rs *ValidationRuleSet) pattern(field string) (*regexp.Regexp, bool) {
	re, ok := rs.compiled[field]
	return re, ok
}

// DefaultRuleSets returns the built-in rule sets for stock, crypto and
// options data.
func DefaultRuleSets() []ValidationRuleSet {
	return []ValidationRuleSet{
		{
			DataType:       DataTypeStockPrice,
			RequiredFields: []string{"symbol", "price", "volume", "timestamp"},
			Ranges: map[string]RangeRule{
				"price":  {Min: 0.01, Max: 1000000},
				"volume": {Min: 0, Max: 1e12},
			},
			Patterns: map[string]string{
				"symbol": `^[A-Z][A-Z0-9.]{0,9}$`,
			},
			MaxAge:         10 * time.Second,
			MaxPriceChange: 0.10,
			MaxVolumeSpike: 10,
		},
		{
			DataType:       DataTypeCryptoPrice,
			RequiredFields: []string{"symbol", "price", "volume", "timestamp"},
			Ranges: map[string]RangeRule{
				"price":  {Min: 1e-8, Max: 10000000},
				"volume": {Min: 0, Max: 1e15},
			},
			Patterns: map[string]string{
				"symbol": `^[A-Z0-9]{2,10}-[A-Z]{3,5}$`,
			},
			MaxAge:         5 * time.Second,
			MaxPriceChange: 0.15,
			MaxVolumeSpike: 10,
		},
		{
			DataType:       DataTypeOptionsData,
			RequiredFields: []string{"symbol", "price", "strike", "expiration", "timestamp"},
			Ranges: map[string]RangeRule{
				"price":  {Min: 0, Max: 100000},
				"strike": {Min: 0.01, Max: 1000000},
			},
			MaxAge:         60 * time.Second,
			MaxPriceChange: 0.25,
			MaxVolumeSpike: 20,
		},
	}
}

// RuleRegistry maps data-type tags to their rule sets. Rule sets are
// registered at construction and read-only thereafter.
type RuleRegistry struct {
	rules map[DataType]*ValidationRuleSet
}

// NewRuleRegistry builds a registry from the given rule sets. Later sets
// override earlier ones with the same data type, which lets callers replace
// built-ins from configuration.
func NewRuleRegistry(sets ...ValidationRuleSet) (*RuleRegistry, error) {
	r := &RuleRegistry{rules: make(map[DataType]*ValidationRuleSet, len(sets))}
	for i := range sets {
		rs := sets[i]
		if rs.DataType == "" {
			return nil, fmt.Errorf("rule set %d has no data type", i)
		}
		if err := rs.compile(); err != nil {
			return nil, fmt.Errorf("rule set %s: %w", rs.DataType, err)
		}
		r.rules[rs.DataType] = &rs
	}
	return r, nil
}

// GetRuleSet looks up the rule set for a data type.
func (r *RuleRegistry) GetRuleSet(dataType DataType) (*ValidationRuleSet, bool) {
	rs, ok := r.rules[dataType]
	return rs, ok
}

// DataTypes lists the registered data types.
func (r *RuleRegistry) DataTypes() []DataType {
	types := make([]DataType, 0, len(r.rules))
	for dt := range r.rules {
		types = append(types, dt)
	}
	return types
}

// DetectDataType guesses the data type from the record shape. This is the
// documented fallback used when the caller did not start monitoring with an
// explicit data type: a hyphenated symbol is treated as a crypto pair, a
// record carrying strike and expiration fields as options data, anything
// else as a stock quote.
func DetectDataType(symbol string, record Record) DataType {
	if strings.Contains(symbol, "-") {
		return DataTypeCryptoPrice
	}
	if record.Has("strike") && (record.Has("expiration") || record.Has("expiry")) {
		return DataTypeOptionsData
	}
	return DataTypeStockPrice
}
