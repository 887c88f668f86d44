package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// Discipline selects the queueing order of a resource's waiting list.
type Discipline int

const (
	// DisciplineFIFO serves waiters strictly in arrival order.
	DisciplineFIFO Discipline = iota

	// DisciplinePriority serves waiters by ascending priority value,
	// breaking ties by arrival order.
	DisciplinePriority
)

// waiter is one suspended resource request. The grant continuation runs when
// a ResourceGrantEvent pops, never synchronously inside Release.
type waiter struct {
	proc     *Process
	priority int
	seq      uint64
	grant    func(now float64)
}

// Resource is a named, capacity-limited resource. Agents never mutate
// resource state directly; every slot transition goes through TryAcquire,
// Acquire and Release, and every grant and release is published to the feed.
type Resource struct {
	sim        *Simulator
	name       string
	capacity   int
	discipline Discipline

	holders map[string]float64 // holder ID → acquisition time
	waiting []*waiter
	nextSeq uint64
}

func newResource(sim *Simulator, name string, capacity int, discipline Discipline) *Resource {
	return &Resource{
		sim:        sim,
		name:       name,
		capacity:   capacity,
		discipline: discipline,
		holders:    make(map[string]float64),
	}
}

// Name returns the resource identifier.
func (r *Resource) Name() string { return r.name }

// Capacity returns the configured slot count.
func (r *Resource) Capacity() int { return r.capacity }

// HolderCount returns the number of current holders.
func (r *Resource) HolderCount() int { return len(r.holders) }

// WaitingCount returns the number of suspended requests.
func (r *Resource) WaitingCount() int { return len(r.waiting) }

// Holds reports whether holderID currently holds a slot.
func (r *Resource) Holds(holderID string) bool {
	_, ok := r.holders[holderID]
	return ok
}

// TryAcquire grants a slot to holderID if capacity is free, without ever
// suspending. This is the check half of the check-and-acquire protocol used
// for room selection under contention: callers enumerate candidates, attempt
// each, and fall back to an explicit wait only when every candidate is held.
func (r *Resource) TryAcquire(holderID string) bool {
	if len(r.holders) >= r.capacity {
		return false
	}
	r.addHolder(holderID)
	return true
}

// Acquire requests a slot for proc. If capacity is free the slot is granted
// immediately and the grant continuation runs within the current event.
// Otherwise the process suspends on the waiting list until a Release grants
// it, at which point the continuation resumes at the next scheduler step.
func (r *Resource) Acquire(proc *Process, priority int, grant func(now float64)) {
	if proc.Blocked() {
		panic(&ConsistencyError{
			Invariant: "single suspension",
			Detail:    fmt.Sprintf("process %s requested %s while already blocked", proc.ID, r.name),
		})
	}
	if len(r.holders) < r.capacity {
		r.addHolder(proc.ID)
		grant(r.sim.Clock)
		return
	}
	w := &waiter{proc: proc, priority: priority, seq: r.nextSeq, grant: grant}
	r.nextSeq++
	proc.blockedOn = w
	r.sim.blockedProcs++
	r.waiting = append(r.waiting, w)
	logrus.Debugf("resource %s: %s waiting (priority=%d, queue=%d)", r.name, proc.ID, priority, len(r.waiting))
}

// Release frees holderID's slot. If the waiting list is non-empty, the
// best-ranked waiter is granted the slot atomically (the slot is reserved
// here so no later request can steal it) and its process resumes via a
// scheduled ResourceGrantEvent, preserving the engine's ordering invariants.
func (r *Resource) Release(holderID string) {
	if _, ok := r.holders[holderID]; !ok {
		panic(&ConsistencyError{
			Invariant: "release by holder",
			Detail:    fmt.Sprintf("%s released %s without holding it", holderID, r.name),
		})
	}
	delete(r.holders, holderID)
	r.sim.publish(feed.Record{
		PatientID: holderID,
		Kind:      feed.KindResourceRelease,
		Resource:  r.name,
	})

	if len(r.waiting) == 0 {
		return
	}
	next := r.takeNext()
	r.addHolder(next.proc.ID)
	r.sim.scheduleGrant(r, next)
}

// Promote raises the first matching waiter to the given priority value.
// Used by the gap-filling policy on the prep-room queue; it reorders that
// queue only and returns whether a waiter was promoted.
func (r *Resource) Promote(match func(procID string) bool, priority int) bool {
	if r.discipline != DisciplinePriority {
		return false
	}
	for _, w := range r.waiting {
		if w.priority > priority && match(w.proc.ID) {
			logrus.Debugf("resource %s: promoting %s to priority %d", r.name, w.proc.ID, priority)
			w.priority = priority
			return true
		}
	}
	return false
}

// addHolder records a new holder and enforces the capacity invariant.
func (r *Resource) addHolder(holderID string) {
	if _, ok := r.holders[holderID]; ok {
		panic(&ConsistencyError{
			Invariant: "single slot per holder",
			Detail:    fmt.Sprintf("%s acquired %s twice", holderID, r.name),
		})
	}
	r.holders[holderID] = r.sim.Clock
	if len(r.holders) > r.capacity {
		panic(&ConsistencyError{
			Invariant: "resource capacity",
			Detail:    fmt.Sprintf("%s has %d holders, capacity %d", r.name, len(r.holders), r.capacity),
		})
	}
	r.sim.publish(feed.Record{
		PatientID: holderID,
		Kind:      feed.KindResourceGrant,
		Resource:  r.name,
	})
}

// takeNext removes and returns the best-ranked waiter: lowest priority value
// first for priority resources, then arrival order; pure arrival order for
// FIFO resources.
func (r *Resource) takeNext() *waiter {
	best := 0
	for i := 1; i < len(r.waiting); i++ {
		w, b := r.waiting[i], r.waiting[best]
		if r.discipline == DisciplinePriority {
			if w.priority < b.priority || (w.priority == b.priority && w.seq < b.seq) {
				best = i
			}
		} else if w.seq < b.seq {
			best = i
		}
	}
	next := r.waiting[best]
	r.waiting = append(r.waiting[:best], r.waiting[best+1:]...)
	return next
}
