// Package distribution defines the statistical distribution specs that drive
// synthetic field generation, and sampling over an injected random source.
package distribution

import (
	"fmt"
)

// Kind identifies a distribution variant.
type Kind string

const (
	Constant    Kind = "constant"
	Uniform     Kind = "uniform"
	Normal      Kind = "normal"
	Exponential Kind = "exponential"
	Bimodal     Kind = "bimodal"
	Categorical Kind = "categorical"
)

// Category is one weighted member of a categorical spec.
type Category struct {
	Value  string  `yaml:"value" mapstructure:"value"`
	Weight float64 `yaml:"weight" mapstructure:"weight"`
}

// Mode is one normal component of a bimodal spec.
type Mode struct {
	Mean   float64 `yaml:"mean" mapstructure:"mean"`
	StdDev float64 `yaml:"stddev" mapstructure:"stddev"`
}

// Spec is a tagged variant over the supported distributions. Only the fields
// relevant to Kind are consulted; Validate rejects specs whose relevant fields
// are out of range. A Spec is immutable once constructed.
type Spec struct {
	Kind Kind `yaml:"kind" mapstructure:"kind"`

	// constant
	Value float64 `yaml:"value" mapstructure:"value"`

	// uniform
	Min float64 `yaml:"min" mapstructure:"min"`
	Max float64 `yaml:"max" mapstructure:"max"`

	// normal
	Mean   float64 `yaml:"mean" mapstructure:"mean"`
	StdDev float64 `yaml:"stddev" mapstructure:"stddev"`

	// exponential
	Rate float64 `yaml:"rate" mapstructure:"rate"`

	// bimodal
	Modes     []Mode  `yaml:"modes" mapstructure:"modes"`
	MixWeight float64 `yaml:"mix_weight" mapstructure:"mix_weight"`

	// categorical
	Categories []Category `yaml:"categories" mapstructure:"categories"`

	// Floor clamps negative draws from normal/bimodal specs that describe
	// non-negative quantities. Nil means no clamping.
	Floor *float64 `yaml:"floor" mapstructure:"floor"`
}

// Numeric reports whether the spec produces numeric samples (everything but
// categorical).
func (s Spec) Numeric() bool {
	return s.Kind != Categorical
}

// Validate checks the invariants a spec must satisfy before it may be sampled.
func (s Spec) Validate() error {
	switch s.Kind {
	case Constant:
		return nil
	case Uniform:
		if s.Max < s.Min {
			return fmt.Errorf("uniform: max %v below min %v", s.Max, s.Min)
		}
	case Normal:
		if s.StdDev < 0 {
			return fmt.Errorf("normal: negative stddev %v", s.StdDev)
		}
	case Exponential:
		if s.Rate <= 0 {
			return fmt.Errorf("exponential: rate must be positive, got %v", s.Rate)
		}
	case Bimodal:
		if len(s.Modes) != 2 {
			return fmt.Errorf("bimodal: need exactly 2 modes, got %d", len(s.Modes))
		}
		for i, m := range s.Modes {
			if m.StdDev < 0 {
				return fmt.Errorf("bimodal: mode %d has negative stddev %v", i, m.StdDev)
			}
		}
		if s.MixWeight < 0 || s.MixWeight > 1 {
			return fmt.Errorf("bimodal: mix_weight %v outside [0,1]", s.MixWeight)
		}
	case Categorical:
		total := 0.0
		for i, c := range s.Categories {
			if c.Weight < 0 {
				return fmt.Errorf("categorical: category %d (%q) has negative weight %v", i, c.Value, c.Weight)
			}
			total += c.Weight
		}
		if total <= 0 {
			return fmt.Errorf("categorical: total weight must be positive, got %v", total)
		}
	default:
		return fmt.Errorf("unknown distribution kind %q", s.Kind)
	}
	return nil
}
