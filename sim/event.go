package sim

// Event defines the interface for all simulation events.
// Each event carries a timestamp (virtual minutes), a per-simulator event ID
// used as the deterministic FIFO tie-breaker, and an Execute method that
// advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	EventID() uint64
	Type() EventType
	Execute(sim *Simulator)
}

// EventType classifies events for priority ordering at equal timestamps.
type EventType string

const (
	EventTypeArrival          EventType = "Arrival"
	EventTypeResourceGrant    EventType = "ResourceGrant"
	EventTypeActivityComplete EventType = "ActivityComplete"
	EventTypeControl          EventType = "Control"
)

// EventTypePriority defines ordering for simultaneous events.
// Lower values are processed first.
var EventTypePriority = map[EventType]int{
	EventTypeArrival:          1,
	EventTypeResourceGrant:    2,
	EventTypeActivityComplete: 3,
	EventTypeControl:          4,
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	timestamp float64
	eventID   uint64
	eventType EventType
}

func (e *BaseEvent) Timestamp() float64 {
	return e.timestamp
}

func (e *BaseEvent) EventID() uint64 {
	return e.eventID
}

func (e *BaseEvent) Type() EventType {
	return e.eventType
}

// ArrivalEvent admits the next generated patient into the system. The
// patient record itself is built when the event executes, so classification
// draws happen in strict timestamp order.
type ArrivalEvent struct {
	BaseEvent
}

func (e *ArrivalEvent) Execute(sim *Simulator) {
	sim.handleArrival(e)
}

// ResourceGrantEvent resumes a process whose resource request has been
// granted. The slot is reserved at release time; the waiter's continuation
// runs only when this event pops, never synchronously inside Release.
type ResourceGrantEvent struct {
	BaseEvent
	Resource *Resource
	Waiter   *waiter
}

func (e *ResourceGrantEvent) Execute(sim *Simulator) {
	sim.handleResourceGrant(e)
}

// ActivityCompleteEvent resumes a process suspended on a timed activity.
type ActivityCompleteEvent struct {
	BaseEvent
	Process *Process
	resume  func(now float64)
}

func (e *ActivityCompleteEvent) Execute(sim *Simulator) {
	e.resume(e.timestamp)
}

// ControlEvent runs engine housekeeping: arrival generation, gatekeeper
// evaluation and gap-filling idle checks. Control callbacks may suspend the
// processes they resume but never block themselves.
type ControlEvent struct {
	BaseEvent
	fn func(now float64)
}

func (e *ControlEvent) Execute(sim *Simulator) {
	e.fn(e.timestamp)
}
