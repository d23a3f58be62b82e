package quality

import (
	"fmt"
	"math"
	"time"
)

// Weights are the per-dimension contributions to the overall score. They
// should sum to 1 so the overall score stays in [0, 100]. Freshness carries
// the largest weight: stale-but-complete data is operationally worse than
// slightly-incomplete-but-fresh data in a trading context.
type Weights struct {
	Freshness    float64 `yaml:"freshness" json:"freshness"`
	Completeness float64 `yaml:"completeness" json:"completeness"`
	Accuracy     float64 `yaml:"accuracy" json:"accuracy"`
	Consistency  float64 `yaml:"consistency" json:"consistency"`
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Freshness:    0.30,
		Completeness: 0.25,
		Accuracy:     0.25,
		Consistency:  0.20,
	}
}

// Scorer computes the four sub-scores and the weighted overall score for a
// record against a rule set. Scoring is a pure computation: all state it
// needs (the prior observation) is passed in.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// NewScorer creates a scorer with the given weights and clock.
func NewScorer(weights Weights, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{weights: weights, now: now}
}

// Score evaluates a record against a rule set. prior is the most recent
// history entry for the symbol, or nil on first observation.
func (s *Scorer) Score(record Record, rs *ValidationRuleSet, prior *HistoryEntry) (SubScores, []Violation) {
	var violations []Violation

	completeness, v := s.scoreCompleteness(record, rs)
	violations = append(violations, v...)

	accuracy, v := s.scoreAccuracy(record, rs)
	violations = append(violations, v...)

	freshness, v := s.scoreFreshness(record, rs)
	violations = append(violations, v...)

	consistency, v := s.scoreConsistency(record, rs, prior)
	violations = append(violations, v...)

	scores := SubScores{
		Freshness:    freshness,
		Completeness: completeness,
		Accuracy:     accuracy,
		Consistency:  consistency,
	}
	scores.Overall = clampScore(s.weights.Freshness*freshness +
		s.weights.Completeness*completeness +
		s.weights.Accuracy*accuracy +
		s.weights.Consistency*consistency)

	return scores, violations
}

// scoreCompleteness checks presence of required fields. A field counts as
// missing when absent or nil.
func (s *Scorer) scoreCompleteness(record Record, rs *ValidationRuleSet) (float64, []Violation) {
	total := len(rs.RequiredFields)
	if total == 0 {
		return 100, nil
	}

	var violations []Violation
	missing := 0
	for _, field := range rs.RequiredFields {
		if !record.Has(field) {
			missing++
			violations = append(violations, Violation{
				Kind:     ViolationCompleteness,
				Field:    field,
				Expected: "present",
				Message:  fmt.Sprintf("missing required field: %s", field),
			})
		}
	}

	return 100 * (1 - float64(missing)/float64(total)), violations
}

// scoreAccuracy evaluates every field with a declared range or pattern. With
// zero applicable checks the score is 100: absence of checkable fields never
// penalizes accuracy.
func (s *Scorer) scoreAccuracy(record Record, rs *ValidationRuleSet) (float64, []Violation) {
	var violations []Violation
	checks := 0
	failed := 0

	for field, bounds := range rs.Ranges {
		if !record.Has(field) {
			continue
		}
		checks++
		value, ok := record.Float(field)
		if !ok {
			failed++
			violations = append(violations, Violation{
				Kind:     ViolationAccuracy,
				Field:    field,
				Observed: record[field],
				Expected: "numeric value",
				Message:  fmt.Sprintf("field %s is not numeric", field),
			})
			continue
		}
		if value < bounds.Min || value > bounds.Max {
			failed++
			violations = append(violations, Violation{
				Kind:     ViolationAccuracy,
				Field:    field,
				Observed: value,
				Expected: fmt.Sprintf("[%g, %g]", bounds.Min, bounds.Max),
				Message:  fmt.Sprintf("field %s value %g outside range [%g, %g]", field, value, bounds.Min, bounds.Max),
			})
		}
	}

	for field := range rs.Patterns {
		if !record.Has(field) {
			continue
		}
		re, ok := rs.pattern(field)
		if !ok {
			continue
		}
		checks++
		value, isString := record.String(field)
		if !isString || !re.MatchString(value) {
			failed++
			violations = append(violations, Violation{
				Kind:     ViolationAccuracy,
				Field:    field,
				Observed: record[field],
				Expected: rs.Patterns[field],
				Message:  fmt.Sprintf("field %s does not match pattern %s", field, rs.Patterns[field]),
			})
		}
	}

	if checks == 0 {
		return 100, violations
	}
	return 100 * (1 - float64(failed)/float64(checks)), violations
}

// scoreFreshness scores the record's age against the rule set's maximum
// acceptable age. Age beyond the maximum clamps to 0 and registers a
// violation. A missing or unparseable timestamp scores 0.
func (s *Scorer) scoreFreshness(record Record, rs *ValidationRuleSet) (float64, []Violation) {
	ts, ok := record.Timestamp()
	if !ok {
		return 0, []Violation{{
			Kind:     ViolationFreshness,
			Field:    "timestamp",
			Expected: "valid timestamp",
			Message:  "missing or invalid timestamp",
		}}
	}
	if rs.MaxAge <= 0 {
		return 100, nil
	}

	age := s.now().Sub(ts)
	score := clampScore(100 * (1 - age.Seconds()/rs.MaxAge.Seconds()))

	var violations []Violation
	if age > rs.MaxAge {
		violations = append(violations, Violation{
			Kind:     ViolationFreshness,
			Field:    "timestamp",
			Observed: age.String(),
			Expected: fmt.Sprintf("<= %s", rs.MaxAge),
			Message:  fmt.Sprintf("record age %s exceeds maximum %s", age.Round(time.Millisecond), rs.MaxAge),
		})
	}
	return score, violations
}

// scoreConsistency compares the record against the prior observation using
// the rule set's consistency thresholds. No prior observation means
// consistency cannot be assessed and scores 100. When multiple checks apply,
// the score is the fraction not violating, matching the accuracy policy.
func (s *Scorer) scoreConsistency(record Record, rs *ValidationRuleSet, prior *HistoryEntry) (float64, []Violation) {
	if prior == nil {
		return 100, nil
	}

	var violations []Violation
	checks := 0
	failed := 0

	if rs.MaxPriceChange > 0 && prior.Price != nil && *prior.Price > 0 {
		if price, ok := record.Float("price"); ok {
			checks++
			change := math.Abs(price-*prior.Price) / *prior.Price
			if change > rs.MaxPriceChange {
				failed++
				violations = append(violations, Violation{
					Kind:     ViolationConsistency,
					Field:    "price",
					Observed: change,
					Expected: fmt.Sprintf("<= %g", rs.MaxPriceChange),
					Message:  fmt.Sprintf("price changed %.1f%% vs prior, limit %.1f%%", change*100, rs.MaxPriceChange*100),
				})
			}
		}
	}

	if rs.MaxVolumeSpike > 0 && prior.Volume != nil && *prior.Volume > 0 {
		if volume, ok := record.Float("volume"); ok {
			checks++
			ratio := volume / *prior.Volume
			if ratio > rs.MaxVolumeSpike {
				failed++
				violations = append(violations, Violation{
					Kind:     ViolationConsistency,
					Field:    "volume",
					Observed: ratio,
					Expected: fmt.Sprintf("<= %gx", rs.MaxVolumeSpike),
					Message:  fmt.Sprintf("volume is %.1fx prior, limit %gx", ratio, rs.MaxVolumeSpike),
				})
			}
		}
	}

	if checks == 0 {
		return 100, violations
	}
	return 100 * (1 - float64(failed)/float64(checks)), violations
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
