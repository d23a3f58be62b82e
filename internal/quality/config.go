package quality

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning defaults. These are operating values carried over from production
// use, not derived constants; everything here is overridable in config.
const (
	DefaultSmoothingAlpha   = 0.1
	DefaultHistoryLimit     = 1000
	DefaultTrendWindow      = 5
	DefaultTrendHysteresis  = 2.0
	DefaultRecentIssueLimit = 5
	DefaultAlertCooldown    = 5 * time.Minute
	DefaultRecentAlertLimit = 100
	DefaultAlertsPerMinute  = 30
	DefaultAlertBurst       = 10
	DefaultAggregation      = time.Second
)

// Duration wraps time.Duration so YAML configs can say "5m" or "10s".
type Duration time.Duration

// UnmarshalYAML parses either a Go duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RuleSetConfig is the YAML-facing shape of a rule set.
type RuleSetConfig struct {
	DataType       string               `yaml:"data_type"`
	RequiredFields []string             `yaml:"required_fields"`
	Ranges         map[string]RangeRule `yaml:"ranges"`
	Patterns       map[string]string    `yaml:"patterns"`
	MaxAge         Duration             `yaml:"max_age"`
	MaxPriceChange float64              `yaml:"max_price_change"`
	MaxVolumeSpike float64              `yaml:"max_volume_spike"`
}

// RuleSet converts the config form into a rule set.
func (c RuleSetConfig) RuleSet() ValidationRuleSet {
	return ValidationRuleSet{
		DataType:       DataType(c.DataType),
		RequiredFields: c.RequiredFields,
		Ranges:         c.Ranges,
		Patterns:       c.Patterns,
		MaxAge:         c.MaxAge.Std(),
		MaxPriceChange: c.MaxPriceChange,
		MaxVolumeSpike: c.MaxVolumeSpike,
	}
}

// Config carries every engine tunable. Zero values fall back to defaults, so
// an empty config produces a working engine.
type Config struct {
	Weights             Weights         `yaml:"weights"`
	SmoothingAlpha      float64         `yaml:"smoothing_alpha"`
	HistoryLimit        int             `yaml:"history_limit"`
	TrendWindow         int             `yaml:"trend_window"`
	TrendHysteresis     float64         `yaml:"trend_hysteresis"`
	RecentIssueLimit    int             `yaml:"recent_issue_limit"`
	Thresholds          Thresholds      `yaml:"thresholds"`
	AlertCooldown       Duration        `yaml:"alert_cooldown"`
	AlertsPerMinute     int             `yaml:"alerts_per_minute"`
	AlertBurst          int             `yaml:"alert_burst"`
	RecentAlertLimit    int             `yaml:"recent_alert_limit"`
	AggregationInterval Duration        `yaml:"aggregation_interval"`
	RuleSets            []RuleSetConfig `yaml:"rule_sets"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued tunable with its default.
func (c *Config) ApplyDefaults() {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		c.SmoothingAlpha = DefaultSmoothingAlpha
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.TrendWindow <= 0 {
		c.TrendWindow = DefaultTrendWindow
	}
	if c.TrendHysteresis <= 0 {
		c.TrendHysteresis = DefaultTrendHysteresis
	}
	if c.RecentIssueLimit <= 0 {
		c.RecentIssueLimit = DefaultRecentIssueLimit
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = DefaultThresholds()
	}
	if c.AlertCooldown <= 0 {
		c.AlertCooldown = Duration(DefaultAlertCooldown)
	}
	if c.AlertsPerMinute <= 0 {
		c.AlertsPerMinute = DefaultAlertsPerMinute
	}
	if c.AlertBurst <= 0 {
		c.AlertBurst = DefaultAlertBurst
	}
	if c.RecentAlertLimit <= 0 {
		c.RecentAlertLimit = DefaultRecentAlertLimit
	}
	if c.AggregationInterval <= 0 {
		c.AggregationInterval = Duration(DefaultAggregation)
	}
}

// Validate rejects configurations the engine cannot run with. Zero-value
// weights mean "use defaults" and pass.
func (c *Config) Validate() error {
	if c.Weights != (Weights{}) {
		sum := c.Weights.Freshness + c.Weights.Completeness + c.Weights.Accuracy + c.Weights.Consistency
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("scoring weights must sum to 1, got %g", sum)
		}
	}
	for i, rs := range c.RuleSets {
		if rs.DataType == "" {
			return fmt.Errorf("rule set %d: data_type is required", i)
		}
	}
	return nil
}
