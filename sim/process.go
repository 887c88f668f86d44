package sim

// Process is an agent's execution context. The agent's journey is written in
// continuation-passing style: each step runs inside an event callback and,
// before suspending, stores the continuation that the scheduler (timed
// activity) or a resource grant will resume.
//
// A process is created when its agent enters the system and is dropped when
// its step sequence completes; it is never resumed concurrently, since the
// engine pops one event at a time.
type Process struct {
	ID string

	// blockedOn is the resource request this process is suspended on,
	// nil while the process is runnable or in a timed wait.
	blockedOn *waiter
}

// NewProcess creates a process context for an agent.
func NewProcess(id string) *Process {
	return &Process{ID: id}
}

// Blocked reports whether the process is suspended on a resource request.
func (p *Process) Blocked() bool {
	return p.blockedOn != nil
}
