// Package sim provides the core discrete-event simulation engine for the MRI
// patient-flow model.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go / event_heap.go: typed events and the deterministic event queue
//   - simulator.go: the event loop, virtual clock, and run-to-clear termination
//   - resource.go: capacity-limited resources with FIFO and priority queueing
//   - workflow.go / inpatient.go: the patient journey state machines
//
// # Architecture
//
// The engine is single-threaded and cooperative: exactly one event callback
// executes at a time, running to its next suspension point (a timed activity
// or a resource wait) before the next event is popped. All stochastic draws
// come from a PartitionedRNG keyed on the run seed, so two runs with the same
// seed and configuration produce byte-identical event traces.
//
// Side effects flow outward only: every stage transition, resource grant and
// release, and magnet state change is published to the read-only event feed
// (sim/feed). The Collector (stats.go) observes the feed and derives warm-up
// filtered utilization and throughput metrics. Consumers of the feed must
// never influence simulated outcomes.
package sim
