package sim

import "fmt"

// ConfigurationError reports a malformed or out-of-range configuration value.
// It is returned before the run starts; a simulation never begins with an
// invalid configuration.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// ConsistencyError reports a violated engine invariant: capacity exceeded,
// clock regression, negative delay, or a scheduler deadlock. It aborts the
// run immediately, since continuing would produce meaningless statistics.
type ConsistencyError struct {
	Invariant string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error: %s: %s", e.Invariant, e.Detail)
}

// SamplingError reports a stochastic draw that produced a negative or NaN
// duration. It indicates bad distribution parameters and is fatal: malformed
// durations are never clamped, since that would corrupt utilization
// statistics.
type SamplingError struct {
	Activity string
	Value    float64
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling error: activity %q drew invalid duration %v", e.Activity, e.Value)
}
