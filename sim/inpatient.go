package sim

// Inpatient journey. Inpatients arrive on a bed: no registration, no
// changing room. They stage in the holding room, get prepped there by the
// backup tech, and outrank outpatients in the magnet queue. Porters move the
// bed both ways; the handover and table-setup phases are folded into the bed
// transfer.

func (w *Workflow) startInpatient(p *Patient) {
	s := w.sim
	s.Resource(ResHoldingRoom).Acquire(p.proc, 0, func(now float64) {
		w.setStage(p, StageHolding)
		s.Resource(ResBackupTech).Acquire(p.proc, 0, func(now float64) {
			d := s.Sampler.Duration("holding_prep", s.Config.Durations.HoldingPrep)
			if p.NeedsIV {
				d += s.Sampler.Duration("iv_setup", s.Config.Durations.IVSetup)
				if p.DifficultIV {
					d += s.Sampler.Duration("iv_difficult", s.Config.Durations.IVDifficult)
				}
			}
			s.Wait(p.proc, d, func(now float64) {
				s.Resource(ResBackupTech).Release(p.ID)
				w.setStage(p, StagePrepped)
				w.buffer(p)
			})
		})
	})
}

// bedTransfer moves the bed from holding to the assigned magnet. The holding
// room frees as soon as the transfer starts, not when the scan ends, so the
// next inpatient can stage behind them.
func (w *Workflow) bedTransfer(p *Patient, m *Magnet) {
	s := w.sim
	s.Resource(ResPorter).Acquire(p.proc, 0, func(now float64) {
		s.Resource(ResHoldingRoom).Release(p.ID)
		w.setStage(p, StageScanning)
		m.EnterPhase(p, PhaseTransfer)
		d := s.Sampler.Duration("bed_transfer", s.Config.Durations.BedTransfer)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResPorter).Release(p.ID)
			s.Resource(ResScanTech).Acquire(p.proc, 0, func(now float64) {
				w.runScan(p, m)
			})
		})
	})
}

// inpatientExit sends the bed back to the ward with a porter.
func (w *Workflow) inpatientExit(p *Patient) {
	s := w.sim
	s.Resource(ResPorter).Acquire(p.proc, 0, func(now float64) {
		d := s.Sampler.Duration("bed_transfer", s.Config.Durations.BedTransfer)
		s.Wait(p.proc, d, func(now float64) {
			s.Resource(ResPorter).Release(p.ID)
			w.complete(p)
		})
	})
}
