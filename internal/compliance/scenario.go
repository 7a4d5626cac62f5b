// Package compliance injects rule violations into generated transactions
// according to configured scenarios, with deterministic severity
// classification and bounded per-customer history for pattern rules.
package compliance

import (
	"fmt"
	"time"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// Defaults applied when a scenario omits optional tuning knobs.
const (
	DefaultThreshold = 10000.0
	DefaultWindow    = 5 * time.Minute
	DefaultMinCount  = 3
)

// ScenarioConfig declares one probabilistic violation-injection rule.
// Scenarios are evaluated in declaration order, each against an independent
// Bernoulli draw of Probability.
type ScenarioConfig struct {
	Kind        model.ViolationKind `yaml:"kind" mapstructure:"kind"`
	Probability float64             `yaml:"probability" mapstructure:"probability" validate:"gte=0,lte=1"`

	// Threshold bounds amounts for large_amount and structuring scenarios.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold" validate:"gte=0"`

	// Window bounds the per-customer lookback for structuring and
	// rapid_fire. MinCount is the windowed count at which rapid_fire
	// escalates from medium to high severity.
	Window   time.Duration `yaml:"window" mapstructure:"window"`
	MinCount int           `yaml:"min_count" mapstructure:"min_count" validate:"gte=0"`
}

// Validate rejects malformed scenarios wholesale; a single bad scenario fails
// the whole configuration at load time rather than per transaction.
func (s ScenarioConfig) Validate() error {
	known := false
	for _, k := range model.ViolationKinds {
		if s.Kind == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown scenario kind %q", s.Kind)
	}
	if s.Probability < 0 || s.Probability > 1 {
		return fmt.Errorf("scenario %s: probability %v outside [0,1]", s.Kind, s.Probability)
	}
	if s.Threshold < 0 {
		return fmt.Errorf("scenario %s: negative threshold %v", s.Kind, s.Threshold)
	}
	if s.Window < 0 {
		return fmt.Errorf("scenario %s: negative window %v", s.Kind, s.Window)
	}
	if s.MinCount < 0 {
		return fmt.Errorf("scenario %s: negative min_count %d", s.Kind, s.MinCount)
	}
	return nil
}

func (s ScenarioConfig) threshold() float64 {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return DefaultThreshold
}

func (s ScenarioConfig) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultWindow
}

func (s ScenarioConfig) minCount() int {
	if s.MinCount > 0 {
		return s.MinCount
	}
	return DefaultMinCount
}
