package sim

import "github.com/sirupsen/logrus"

// Admit handles one arrival event: it evaluates the gatekeeper, draws the
// patient's classification, schedules the next arrival and launches the
// journey. All stochastic draws happen here, in event order, so runs with the
// same seed replay identically.
func (w *Workflow) Admit(now float64) {
	s := w.sim
	if !s.State.GeneratorActive {
		return
	}
	if w.gateClosed(now) {
		s.State.GeneratorActive = false
		logrus.Infof("gatekeeper closed arrivals at %.1fmin (%d in system)", now, s.State.PatientsInSystem)
		return
	}

	next := now + s.Sampler.InterArrival(s.Config.Durations.InterArrival)
	if next < s.Config.ShiftMinutes {
		s.ScheduleArrival(next)
	} else {
		s.State.GeneratorActive = false
		logrus.Debugf("arrival generator done: next slot %.1fmin is past shift end", next)
	}

	if s.Sampler.Bernoulli(s.Config.Probabilities.NoShow) {
		s.State.NoShows++
		logrus.Debugf("no-show for the %.1fmin slot", now)
		return
	}

	class := ClassOutpatient
	if s.Sampler.Bernoulli(s.Config.Probabilities.Inpatient) {
		class = ClassInpatient
	}
	s.patientSeq++
	p := NewPatient(s.patientSeq, class)
	p.ArrivalTime = now
	p.Protocol = s.Config.Protocols[s.Sampler.PickProtocol(s.Config.Protocols)].Name
	p.NeedsIV = s.Sampler.Bernoulli(s.Config.Probabilities.IV)
	if p.NeedsIV {
		p.DifficultIV = s.Sampler.Bernoulli(s.Config.Probabilities.DifficultIV)
	}
	if class == ClassOutpatient && s.Sampler.Bernoulli(s.Config.Probabilities.Late) {
		p.IsLate = true
		p.LateDelay = s.Sampler.Lateness(s.Config.Durations.Lateness)
	}

	w.patients[p.ID] = p
	s.State.PatientsArrived++
	s.State.PatientsInSystem++
	w.setStage(p, StageArrived)

	if p.Class == ClassInpatient {
		w.startInpatient(p)
		return
	}
	if p.IsLate {
		s.Wait(p.proc, p.LateDelay, func(now float64) { w.register(p) })
		return
	}
	w.register(p)
}

// gateClosed decides whether admitting another patient would push the shift
// past its end. Two triggers: the backlog already queued would outlast the
// remaining shift, or too little shift remains to fit even the longest scan.
func (w *Workflow) gateClosed(now float64) bool {
	cfg := &w.sim.Config
	remaining := cfg.ShiftMinutes - now
	if remaining <= 0 {
		return true
	}
	inSystem := w.sim.State.PatientsInSystem
	backlog := float64(inSystem) * cfg.AvgCycleMinutes / float64(cfg.MagnetCount)
	if backlog > remaining {
		return true
	}
	if inSystem > 0 && remaining < cfg.MaxScanMinutes() {
		return true
	}
	return false
}
