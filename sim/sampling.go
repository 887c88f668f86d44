package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TriangularParams holds the (min, mode, max) parameters of a triangular
// distribution, in minutes. A degenerate parameterization with Min == Max
// yields the constant Mode, which fixed-duration scenarios rely on.
type TriangularParams struct {
	Min  float64 `yaml:"min"`
	Mode float64 `yaml:"mode"`
	Max  float64 `yaml:"max"`
}

// Validate reports whether the parameters describe a usable distribution.
func (p TriangularParams) Validate(field string) error {
	switch {
	case math.IsNaN(p.Min) || math.IsNaN(p.Mode) || math.IsNaN(p.Max):
		return &ConfigurationError{Field: field, Value: p, Reason: "NaN parameter"}
	case p.Min < 0:
		return &ConfigurationError{Field: field, Value: p, Reason: "min must be >= 0"}
	case p.Mode < p.Min || p.Mode > p.Max:
		return &ConfigurationError{Field: field, Value: p, Reason: "mode must lie in [min, max]"}
	}
	return nil
}

// UpperBound returns the largest value the distribution can produce.
func (p TriangularParams) UpperBound() float64 {
	return p.Max
}

// Sampler draws activity durations and classification outcomes from a
// partitioned RNG. Every draw is validated: a negative or NaN duration
// panics with a SamplingError rather than being clamped.
type Sampler struct {
	durations *rand.Rand
	classify  *rand.Rand
	arrivals  *rand.Rand
}

// NewSampler creates a Sampler over the run's partitioned RNG.
func NewSampler(rng *PartitionedRNG) *Sampler {
	return &Sampler{
		durations: rng.ForSubsystem(SubsystemDurations),
		classify:  rng.ForSubsystem(SubsystemClassification),
		arrivals:  rng.ForSubsystem(SubsystemArrivals),
	}
}

// Duration samples an activity duration from a triangular distribution.
func (s *Sampler) Duration(activity string, p TriangularParams) float64 {
	return s.triangular(activity, p, s.durations)
}

// InterArrival samples the next arrival interval.
func (s *Sampler) InterArrival(p TriangularParams) float64 {
	return s.triangular("inter_arrival", p, s.arrivals)
}

// Lateness samples a late patient's arrival delay from the arrivals stream,
// keeping the arrival schedule isolated from clinical draws.
func (s *Sampler) Lateness(p TriangularParams) float64 {
	return s.triangular("lateness", p, s.arrivals)
}

func (s *Sampler) triangular(activity string, p TriangularParams, rng *rand.Rand) float64 {
	// NewTriangle requires min < max; collapse degenerate parameterizations.
	if p.Max-p.Min == 0 {
		return s.checked(activity, p.Mode)
	}
	dist := distuv.NewTriangle(p.Min, p.Max, p.Mode, rng)
	return s.checked(activity, dist.Rand())
}

func (s *Sampler) checked(activity string, v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		panic(&SamplingError{Activity: activity, Value: v})
	}
	return v
}

// Bernoulli draws a biased coin from the classification stream.
func (s *Sampler) Bernoulli(p float64) bool {
	return s.classify.Float64() < p
}

// PickProtocol selects a protocol index by weight from the classification
// stream. Weights are validated at configuration time to be positive.
func (s *Sampler) PickProtocol(protocols []ProtocolConfig) int {
	total := 0.0
	for _, p := range protocols {
		total += p.Weight
	}
	draw := s.classify.Float64() * total
	cum := 0.0
	for i, p := range protocols {
		cum += p.Weight
		if draw < cum {
			return i
		}
	}
	return len(protocols) - 1
}

// String implements fmt.Stringer for diagnostics.
func (p TriangularParams) String() string {
	return fmt.Sprintf("tri(%g, %g, %g)", p.Min, p.Mode, p.Max)
}
