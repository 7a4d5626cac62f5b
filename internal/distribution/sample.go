package distribution

import (
	"math/rand"
)

// Sample draws one numeric value from the spec using the provided random
// source. Sampling is a pure function of the spec and rng; no package-level
// random state is touched, so runs with the same seed are reproducible.
// The spec must have passed Validate; Sample on a categorical spec returns 0.
func (s Spec) Sample(rng *rand.Rand) float64 {
	var v float64
	switch s.Kind {
	case Constant:
		v = s.Value
	case Uniform:
		v = s.Min + rng.Float64()*(s.Max-s.Min)
	case Normal:
		v = rng.NormFloat64()*s.StdDev + s.Mean
	case Exponential:
		v = rng.ExpFloat64() / s.Rate
	case Bimodal:
		m := s.Modes[1]
		if rng.Float64() < s.MixWeight {
			m = s.Modes[0]
		}
		v = rng.NormFloat64()*m.StdDev + m.Mean
	default:
		return 0
	}
	// Negative draws for non-negative quantities are clamped rather than
	// rejected, keeping per-sample cost constant.
	if s.Floor != nil && v < *s.Floor {
		v = *s.Floor
	}
	return v
}

// Pick draws one category from a categorical spec with probability
// proportional to its weight. Zero-weight categories are never selected.
// The spec must have passed Validate; Pick on a numeric spec returns "".
func (s Spec) Pick(rng *rand.Rand) string {
	if s.Kind != Categorical || len(s.Categories) == 0 {
		return ""
	}
	total := 0.0
	for _, c := range s.Categories {
		total += c.Weight
	}
	target := rng.Float64() * total
	acc := 0.0
	for _, c := range s.Categories {
		if c.Weight == 0 {
			continue
		}
		acc += c.Weight
		if target < acc {
			return c.Value
		}
	}
	// Float accumulation can land exactly on total; fall back to the last
	// selectable category.
	for i := len(s.Categories) - 1; i >= 0; i-- {
		if s.Categories[i].Weight > 0 {
			return s.Categories[i].Value
		}
	}
	return ""
}

// FloorAt is a convenience for building specs with a clamp floor inline.
func FloorAt(v float64) *float64 { return &v }
