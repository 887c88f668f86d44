package sim

import "github.com/sirupsen/logrus"

// Gap filling. When a magnet sits clean-idle past the configured threshold
// with nobody queued for magnet access, the policy pulls forward a patient
// who can be readied quickly: a no-IV outpatient waiting for a prep room
// jumps the prep queue. The magnet queue itself is never reordered, so an
// inpatient already waiting still goes first.

// scheduleIdleChecks arms one idle check per magnet at run start.
func (w *Workflow) scheduleIdleChecks() {
	for _, m := range w.sim.Magnets {
		w.scheduleIdleCheck(m, 0)
	}
}

// scheduleIdleCheck arms a check for when the magnet, idle since idleFrom,
// has been idle for the threshold. The idleSince stamp acts as a generation
// counter: if the magnet was reoccupied and freed again in the meantime, the
// stale check fires and matches nothing.
func (w *Workflow) scheduleIdleCheck(m *Magnet, idleFrom float64) {
	s := w.sim
	if !s.Config.GapFill {
		return
	}
	s.After(s.Config.GapFillIdleMinutes, func(now float64) {
		if m.State() != MagnetCleanIdle || m.IdleSince() != idleFrom {
			return
		}
		w.gapFill(m, now)
	})
}

func (w *Workflow) gapFill(m *Magnet, now float64) {
	s := w.sim
	if s.MagnetAccess.WaitingCount() > 0 {
		return
	}
	promoted := s.Resource(ResPrepRooms).Promote(func(procID string) bool {
		p := w.patients[procID]
		return p != nil && !p.NeedsIV
	}, PriorityInpatient)
	if promoted {
		logrus.Debugf("gap fill: %s idle %.1fmin, promoted a no-IV patient in the prep queue", m.ID, now-m.IdleSince())
	}
}
