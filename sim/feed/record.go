// Package feed provides the read-only event feed published by the simulation
// engine. This package has no dependencies on sim; it stores pure data types
// consumed by rendering and reporting collaborators, which must never feed
// back into the simulation.
package feed

// Kind identifies the category of a feed record.
type Kind string

const (
	KindStageChange       Kind = "stage_change"
	KindResourceGrant     Kind = "resource_grant"
	KindResourceRelease   Kind = "resource_release"
	KindMagnetStateChange Kind = "magnet_state_change"
)

// Record is a single typed entry in the event feed. Timestamps are virtual
// minutes since run start, un-rebased; warm-up filtering is the statistics
// collector's concern, not the feed's.
//
// Only the fields relevant to the record's Kind are populated:
//   - stage_change: From, To, Class, Protocol
//   - resource_grant / resource_release: Resource
//   - magnet_state_change: Magnet, Phase (and Protocol for turnover records)
type Record struct {
	Timestamp float64 `yaml:"t"`
	PatientID string  `yaml:"patient,omitempty"`
	Kind      Kind    `yaml:"kind"`

	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
	Class    string `yaml:"class,omitempty"`
	Protocol string `yaml:"protocol,omitempty"`

	Resource string `yaml:"resource,omitempty"`

	Magnet string `yaml:"magnet,omitempty"`
	Phase  string `yaml:"phase,omitempty"`
}
