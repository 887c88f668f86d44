package sim

import (
	"fmt"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// MagnetState is the magnet's coarse state. A magnet is exactly one of these
// at any time; it cannot accept a new patient while dirty (turnover).
type MagnetState string

const (
	MagnetCleanIdle MagnetState = "clean-idle"
	MagnetScanning  MagnetState = "occupied-scanning"
	MagnetTurnover  MagnetState = "occupied-turnover"
)

// Magnet phase names published to the feed. The coarse state machine above
// guards admission; phases carry the fine-grained occupancy breakdown the
// statistics collector needs to split value-added from overhead time.
const (
	PhaseIdle     = "clean-idle"
	PhasePrep     = "prep" // serial mode: in-magnet prep
	PhaseTransfer = "transfer"
	PhaseHandover = "handover"
	PhaseSetup    = "setup"
	PhaseScanning = "scanning"
	PhaseExit     = "exit"
	PhaseTurnover = "turnover"
)

// Magnet is a scanner bay: a capacity-1 resource plus the dirty/clean
// sub-state and the last-served protocol that drives fast-flip vs slow-flip
// turnover. The sub-state is mutated only by the workflow engine's
// scan-complete and turnover-complete transitions.
type Magnet struct {
	ID  string
	res *Resource

	state        MagnetState
	lastProtocol string
	idleSince    float64
}

func newMagnet(sim *Simulator, id string) *Magnet {
	return &Magnet{
		ID:    id,
		res:   newResource(sim, id, 1, DisciplineFIFO),
		state: MagnetCleanIdle,
	}
}

// State returns the magnet's current coarse state.
func (m *Magnet) State() MagnetState { return m.state }

// LastProtocol returns the protocol of the last completed turnover.
func (m *Magnet) LastProtocol() string { return m.lastProtocol }

// IdleSince returns when the magnet last became clean-idle.
func (m *Magnet) IdleSince() float64 { return m.idleSince }

// TryAssign seizes the magnet for a patient if it is clean-idle and free.
// A dirty magnet never accepts a patient.
func (m *Magnet) TryAssign(p *Patient) bool {
	if m.state != MagnetCleanIdle {
		return false
	}
	if !m.res.TryAcquire(p.ID) {
		return false
	}
	m.state = MagnetScanning
	p.MagnetID = m.ID
	return true
}

// EnterPhase publishes a fine-grained occupancy phase for the collector.
// Legal only while the magnet is occupied.
func (m *Magnet) EnterPhase(p *Patient, phase string) {
	if m.state == MagnetCleanIdle {
		panic(&ConsistencyError{
			Invariant: "magnet occupancy",
			Detail:    fmt.Sprintf("magnet %s entered phase %s while clean-idle", m.ID, phase),
		})
	}
	m.res.sim.publish(feed.Record{
		PatientID: p.ID,
		Kind:      feed.KindMagnetStateChange,
		Magnet:    m.ID,
		Phase:     phase,
		Protocol:  p.Protocol,
	})
}

// ScanComplete transitions occupied-scanning → occupied-turnover. The magnet
// stays held by the patient across their exit; availability returns only
// after TurnoverComplete.
func (m *Magnet) ScanComplete(p *Patient) {
	if m.state != MagnetScanning {
		panic(&ConsistencyError{
			Invariant: "magnet state machine",
			Detail:    fmt.Sprintf("magnet %s scan-complete in state %s", m.ID, m.state),
		})
	}
	m.state = MagnetTurnover
	m.EnterPhase(p, PhaseTurnover)
}

// TurnoverComplete transitions occupied-turnover → clean-idle, records the
// served protocol for the next flip decision, and releases the magnet slot.
func (m *Magnet) TurnoverComplete(p *Patient, now float64) {
	if m.state != MagnetTurnover {
		panic(&ConsistencyError{
			Invariant: "magnet state machine",
			Detail:    fmt.Sprintf("magnet %s turnover-complete in state %s", m.ID, m.state),
		})
	}
	m.state = MagnetCleanIdle
	m.lastProtocol = p.Protocol
	m.idleSince = now
	m.res.sim.publish(feed.Record{
		PatientID: p.ID,
		Kind:      feed.KindMagnetStateChange,
		Magnet:    m.ID,
		Phase:     PhaseIdle,
		Protocol:  p.Protocol,
	})
	m.res.Release(p.ID)
}

// FastFlip reports whether the next patient's protocol matches the
// last-served protocol. A fresh magnet (no protocol served yet) always takes
// the slow flip.
func (m *Magnet) FastFlip(nextProtocol string) bool {
	return m.lastProtocol != "" && m.lastProtocol == nextProtocol
}
