package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnet_AssignScanTurnoverCycle(t *testing.T) {
	s := mustSim(t, fixedConfig())
	m := s.Magnets[0]
	p := NewPatient(1, ClassOutpatient)
	p.Protocol = "Prostate"

	require.Equal(t, MagnetCleanIdle, m.State())
	require.True(t, m.TryAssign(p))
	assert.Equal(t, MagnetScanning, m.State())
	assert.Equal(t, m.ID, p.MagnetID)

	m.ScanComplete(p)
	assert.Equal(t, MagnetTurnover, m.State())

	s.Clock = 25
	m.TurnoverComplete(p, 25)
	assert.Equal(t, MagnetCleanIdle, m.State())
	assert.Equal(t, "Prostate", m.LastProtocol())
	assert.Equal(t, 25.0, m.IdleSince())
}

func TestMagnet_RejectsAssignmentWhileOccupied(t *testing.T) {
	s := mustSim(t, fixedConfig())
	m := s.Magnets[0]
	p1 := NewPatient(1, ClassOutpatient)
	p2 := NewPatient(2, ClassOutpatient)

	require.True(t, m.TryAssign(p1))
	assert.False(t, m.TryAssign(p2), "occupied magnet must reject assignment")

	// Dirty magnets reject too: the patient has left but turnover has not
	// finished.
	m.ScanComplete(p1)
	assert.False(t, m.TryAssign(p2))
}

func TestMagnet_StateMachinePanics(t *testing.T) {
	s := mustSim(t, fixedConfig())
	m := s.Magnets[0]
	p := NewPatient(1, ClassOutpatient)

	assert.Panics(t, func() { m.EnterPhase(p, PhaseScanning) }, "phase while clean-idle")
	assert.Panics(t, func() { m.ScanComplete(p) }, "scan-complete while clean-idle")
	assert.Panics(t, func() { m.TurnoverComplete(p, 0) }, "turnover-complete while clean-idle")

	require.True(t, m.TryAssign(p))
	assert.Panics(t, func() { m.TurnoverComplete(p, 0) }, "turnover-complete while scanning")
}

func TestMagnet_FastFlip(t *testing.T) {
	s := mustSim(t, fixedConfig())
	m := s.Magnets[0]

	// A fresh magnet has no protocol loaded, so the first turnover is
	// always the slow flip.
	assert.False(t, m.FastFlip("Prostate"))

	p := NewPatient(1, ClassOutpatient)
	p.Protocol = "Prostate"
	require.True(t, m.TryAssign(p))
	m.ScanComplete(p)
	m.TurnoverComplete(p, 10)

	assert.True(t, m.FastFlip("Prostate"))
	assert.False(t, m.FastFlip("Brain"))
}
