package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// Workflow drives patients through the department. Each journey is a chain of
// continuations: every step either completes within the current event or
// suspends on a timed activity or a resource queue, resuming when the
// scheduler pops the matching event. All state mutation happens inside these
// continuations, on the single scheduler goroutine.
type Workflow struct {
	sim      *Simulator
	patients map[string]*Patient
	scans    map[string]TriangularParams // protocol name → scan duration
}

// NewWorkflow builds the workflow engine for a run.
func NewWorkflow(sim *Simulator) *Workflow {
	w := &Workflow{
		sim:      sim,
		patients: make(map[string]*Patient),
		scans:    make(map[string]TriangularParams),
	}
	for _, pc := range sim.Config.Protocols {
		w.scans[pc.Name] = pc.ScanDuration
	}
	return w
}

// Patient returns the patient with the given ID, or nil.
func (w *Workflow) Patient(id string) *Patient {
	return w.patients[id]
}

// setStage advances the patient's stage and publishes the transition.
func (w *Workflow) setStage(p *Patient, st Stage) {
	from := string(p.Stage)
	p.enterStage(st, w.sim.Clock)
	w.sim.publish(feed.Record{
		PatientID: p.ID,
		Kind:      feed.KindStageChange,
		From:      from,
		To:        string(st),
		Class:     string(p.Class),
		Protocol:  p.Protocol,
	})
}

// register is the outpatient entry point: front desk, then porter transport
// to the changing area.
func (w *Workflow) register(p *Patient) {
	s := w.sim
	s.Resource(ResRegistration).Acquire(p.proc, 0, func(now float64) {
		d := s.Sampler.Duration("registration", s.Config.Durations.Registration)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResRegistration).Release(p.ID)
			w.setStage(p, StageRegistered)
			w.transport(p)
		})
	})
}

func (w *Workflow) transport(p *Patient) {
	s := w.sim
	s.Resource(ResPorter).Acquire(p.proc, 0, func(now float64) {
		d := s.Sampler.Duration("transport", s.Config.Durations.Transport)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResPorter).Release(p.ID)
			w.change(p)
		})
	})
}

func (w *Workflow) change(p *Patient) {
	s := w.sim
	s.Resource(ResChangeRooms).Acquire(p.proc, 0, func(now float64) {
		w.setStage(p, StageChanging)
		d := s.Sampler.Duration("change", s.Config.Durations.Change)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResChangeRooms).Release(p.ID)
			if s.Config.Mode == WorkflowSerial {
				// Screening and IV happen inside the magnet room; the
				// patient joins the magnet queue straight from changing.
				w.buffer(p)
				return
			}
			w.prep(p)
		})
	})
}

// prep runs the parallel-mode prep room step: a room plus a backup tech for
// screening and, when needed, the IV line. The prep-room queue is the one the
// gap-filling policy promotes within.
func (w *Workflow) prep(p *Patient) {
	s := w.sim
	s.Resource(ResPrepRooms).Acquire(p.proc, PriorityOutpatient, func(now float64) {
		s.Resource(ResBackupTech).Acquire(p.proc, 0, func(now float64) {
			d := w.prepWork(p)
			s.Wait(p.proc, d, func(now float64) {
				s.Resource(ResBackupTech).Release(p.ID)
				s.Resource(ResPrepRooms).Release(p.ID)
				w.setStage(p, StagePrepped)
				w.buffer(p)
			})
		})
	})
}

// prepWork samples the total hands-on prep time: screening, plus IV setup
// and the difficult-stick surcharge when they apply.
func (w *Workflow) prepWork(p *Patient) float64 {
	s := w.sim
	d := s.Sampler.Duration("screening", s.Config.Durations.Screening)
	if p.NeedsIV {
		d += s.Sampler.Duration("iv_setup", s.Config.Durations.IVSetup)
		if p.DifficultIV {
			d += s.Sampler.Duration("iv_difficult", s.Config.Durations.IVDifficult)
		}
	}
	return d
}

// buffer parks the patient in the waiting area and joins the magnet queue,
// with an optional washroom detour first.
func (w *Workflow) buffer(p *Patient) {
	s := w.sim
	w.setStage(p, StageWaiting)
	if p.Class == ClassOutpatient && s.Sampler.Bernoulli(s.Config.Probabilities.Washroom) {
		d := s.Sampler.Duration("washroom", s.Config.Durations.Washroom)
		s.Wait(p.proc, d, func(now float64) { w.queueForMagnet(p) })
		return
	}
	w.queueForMagnet(p)
}

func (w *Workflow) queueForMagnet(p *Patient) {
	s := w.sim
	s.MagnetAccess.Acquire(p.proc, p.MagnetPriority(), func(now float64) {
		m := w.assignMagnet(p)
		if p.Class == ClassInpatient {
			w.bedTransfer(p, m)
			return
		}
		w.scan(p, m)
	})
}

// assignMagnet picks a clean-idle magnet for the patient, preferring one
// whose last-served protocol matches so the turnover after this scan is the
// fast flip. A magnet-access grant guarantees at least one candidate, so
// finding none is an engine bug.
func (w *Workflow) assignMagnet(p *Patient) *Magnet {
	var fallback *Magnet
	for _, m := range w.sim.Magnets {
		if m.State() != MagnetCleanIdle || m.res.HolderCount() > 0 {
			continue
		}
		if m.FastFlip(p.Protocol) {
			if m.TryAssign(p) {
				return m
			}
		}
		if fallback == nil {
			fallback = m
		}
	}
	if fallback != nil && fallback.TryAssign(p) {
		return fallback
	}
	panic(&ConsistencyError{
		Invariant: "magnet access admission",
		Detail:    fmt.Sprintf("%s granted magnet access with no clean-idle magnet free", p.ID),
	})
}

// scan runs the outpatient in-magnet sequence. Parallel mode walks handover,
// setup, scan and exit; serial mode replaces the handover with in-magnet prep
// because screening and IV were not done in a prep room.
func (w *Workflow) scan(p *Patient, m *Magnet) {
	s := w.sim
	s.Resource(ResScanTech).Acquire(p.proc, 0, func(now float64) {
		w.setStage(p, StageScanning)
		if s.Config.Mode == WorkflowSerial {
			m.EnterPhase(p, PhasePrep)
			s.Wait(p.proc, w.prepWork(p), func(now float64) {
				w.scanSetup(p, m)
			})
			return
		}
		m.EnterPhase(p, PhaseHandover)
		d := s.Sampler.Duration("handover", s.Config.Durations.Handover)
		s.Wait(p.proc, d, func(now float64) {
			w.scanSetup(p, m)
		})
	})
}

func (w *Workflow) scanSetup(p *Patient, m *Magnet) {
	s := w.sim
	m.EnterPhase(p, PhaseSetup)
	d := s.Sampler.Duration("scan_setup", s.Config.Durations.ScanSetup)
	s.Wait(p.proc, d, func(now float64) {
		w.runScan(p, m)
	})
}

// runScan samples the protocol's scan duration and runs the scan and exit
// phases, then hands the magnet to the turnover process and the patient to
// their exit path.
func (w *Workflow) runScan(p *Patient, m *Magnet) {
	s := w.sim
	params, ok := w.scans[p.Protocol]
	if !ok {
		panic(&ConsistencyError{
			Invariant: "known protocol",
			Detail:    fmt.Sprintf("%s carries protocol %q with no configured scan duration", p.ID, p.Protocol),
		})
	}
	m.EnterPhase(p, PhaseScanning)
	d := s.Sampler.Duration("scan:"+p.Protocol, params)
	s.Wait(p.proc, d, func(now float64) {
		m.EnterPhase(p, PhaseExit)
		ed := s.Sampler.Duration("scan_exit", s.Config.Durations.ScanExit)
		s.Wait(p.proc, ed, func(now float64) {
			s.Resource(ResScanTech).Release(p.ID)
			m.ScanComplete(p)
			w.setStage(p, StageTurnover)
			w.startTurnover(p, m)
			if p.Class == ClassInpatient {
				w.inpatientExit(p)
				return
			}
			w.outpatientExit(p)
		})
	})
}

// outpatientExit changes the patient back and retires them. The exit runs in
// parallel with the magnet's turnover.
func (w *Workflow) outpatientExit(p *Patient) {
	s := w.sim
	s.Resource(ResChangeRooms).Acquire(p.proc, 0, func(now float64) {
		d := s.Sampler.Duration("change", s.Config.Durations.Change)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResChangeRooms).Release(p.ID)
			w.complete(p)
		})
	})
}

func (w *Workflow) complete(p *Patient) {
	s := w.sim
	p.ExitTime = s.Clock
	w.setStage(p, StageExited)
	s.State.PatientsInSystem--
	s.State.Completed++
	logrus.Debugf("%s (%s, %s) completed at %.1fmin", p.ID, p.Class, p.Protocol, s.Clock)
}

// startTurnover launches the room flip as its own process so it runs
// alongside the patient's exit. Same protocol as the previous occupant means
// the fast flip (porter wipe-down); a protocol change means the slow flip
// (cleaner plus coil change).
func (w *Workflow) startTurnover(p *Patient, m *Magnet) {
	s := w.sim
	s.State.TurnoversInFlight++
	tp := NewProcess(p.ID + "/turnover")
	if m.FastFlip(p.Protocol) {
		s.Resource(ResPorter).Acquire(tp, 0, func(now float64) {
			d := s.Sampler.Duration("turnover_fast", s.Config.Durations.TurnoverFast)
			s.Wait(tp, d, func(now float64) {
				s.Resource(ResPorter).Release(tp.ID)
				w.finishTurnover(p, m, now)
			})
		})
		return
	}
	s.Resource(ResCleaner).Acquire(tp, 0, func(now float64) {
		d := s.Sampler.Duration("turnover_slow", s.Config.Durations.TurnoverSlow)
		s.Wait(tp, d, func(now float64) {
			s.Resource(ResCleaner).Release(tp.ID)
			w.finishTurnover(p, m, now)
		})
	})
}

func (w *Workflow) finishTurnover(p *Patient, m *Magnet, now float64) {
	s := w.sim
	m.TurnoverComplete(p, now)
	s.MagnetAccess.Release(p.ID)
	s.State.TurnoversInFlight--
	w.scheduleIdleCheck(m, now)
}
