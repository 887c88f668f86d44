package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixed scenario: arrivals at 0, 30, 60, 90, every activity instantaneous
// except the 20-minute scan. Four patients flow through back to back and the
// run drains at 110.
func TestWorkflow_FixedScenarioThroughput(t *testing.T) {
	s := mustRun(t, fixedConfig())

	assert.Equal(t, 4, s.State.PatientsArrived)
	assert.Equal(t, 4, s.State.Completed)
	assert.Equal(t, 0, s.State.PatientsInSystem)
	assert.Equal(t, 0, s.State.NoShows)
	assert.Equal(t, 110.0, s.Clock)

	summary := s.Collector.Summarize()
	require.True(t, summary.Valid)
	assert.Equal(t, 4, summary.Completed)
	assert.Equal(t, 4, summary.CompletedByClass["outpatient"])
	assert.Equal(t, 4, summary.CompletedByProtocol["Prostate"])

	require.Len(t, summary.Magnets, 1)
	m := summary.Magnets[0]
	assert.InDelta(t, 80.0, m.ScanMinutes, 1e-9)
	assert.InDelta(t, 0.0, m.OverheadMinutes, 1e-9)
	assert.InDelta(t, 40.0, m.IdleMinutes, 1e-9)
	assert.InDelta(t, 80.0/120.0, m.BusyFraction, 1e-9)
	assert.InDelta(t, 1.0, m.Efficiency, 1e-9)
	assert.Equal(t, 4, m.Completions)

	// Nobody ever queued, so buffer waits are all zero.
	assert.Equal(t, 4, summary.WaitCount)
	assert.InDelta(t, 0.0, summary.WaitMean, 1e-9)
	assert.InDelta(t, 0.0, summary.WaitMax, 1e-9)
}

func TestWorkflow_OutpatientStageSequence(t *testing.T) {
	s := mustRun(t, fixedConfig())

	want := []string{"arrived", "registered", "changing", "prepped", "waiting", "scanning", "turnover", "exited"}
	for _, id := range []string{"patient_1", "patient_4"} {
		assert.Equal(t, want, stageSequence(s.Feed.Records(), id), id)
	}
}

func TestWorkflow_TurnoverFlipSelection(t *testing.T) {
	// Single protocol: the fresh magnet takes one slow flip (cleaner), and
	// every later turnover matches the loaded protocol, so the porter does
	// the fast flip.
	s := mustRun(t, fixedConfig())
	records := s.Feed.Records()

	assert.Equal(t, []string{"patient_1/turnover"}, grantsFor(records, ResCleaner))

	porterTurnovers := 0
	for _, id := range grantsFor(records, ResPorter) {
		if id == "patient_2/turnover" || id == "patient_3/turnover" || id == "patient_4/turnover" {
			porterTurnovers++
		}
	}
	assert.Equal(t, 3, porterTurnovers)
}

func TestWorkflow_GatekeeperClosesOnBacklog(t *testing.T) {
	// Arrivals every 10 minutes against hour-long scans: the backlog
	// outgrows the remaining shift after three admissions and the
	// gatekeeper closes the door. Everyone already inside is still served.
	cfg := fixedConfig()
	cfg.ShiftMinutes = 200
	cfg.Durations.InterArrival = deg(10)
	cfg.Protocols = []ProtocolConfig{{Name: "Prostate", Weight: 1, ScanDuration: deg(60)}}
	cfg.AvgCycleMinutes = 60

	s := mustRun(t, cfg)
	assert.Equal(t, 3, s.State.PatientsArrived)
	assert.Equal(t, 3, s.State.Completed)
	assert.False(t, s.State.GeneratorActive)
	assert.Equal(t, 180.0, s.Clock)
}

func TestWorkflow_GatekeeperClosesNearShiftEnd(t *testing.T) {
	// With a patient still in the system and less shift left than the
	// longest possible scan, the next arrival is turned away.
	cfg := fixedConfig()
	cfg.ShiftMinutes = 100
	cfg.Durations.InterArrival = deg(45)
	cfg.Protocols = []ProtocolConfig{{Name: "Prostate", Weight: 1, ScanDuration: deg(50)}}
	cfg.AvgCycleMinutes = 50

	// Arrivals at 0, 45, 90. At 45 the first patient is mid-scan with 55
	// minutes left: backlog 1*50 < 55 admits. At 90 the second patient is
	// mid-scan and only 10 minutes remain, under the 50-minute worst case.
	s := mustRun(t, cfg)
	assert.Equal(t, 2, s.State.PatientsArrived)
	assert.Equal(t, 2, s.State.Completed)
}

func TestWorkflow_InpatientJourney(t *testing.T) {
	cfg := fixedConfig()
	cfg.Probabilities.Inpatient = 1
	cfg.Durations.HoldingPrep = deg(5)
	cfg.Durations.BedTransfer = deg(2)

	s := mustRun(t, cfg)
	assert.Equal(t, 4, s.State.Completed)

	summary := s.Collector.Summarize()
	assert.Equal(t, 4, summary.CompletedByClass["inpatient"])
	assert.Zero(t, summary.CompletedByClass["outpatient"])

	want := []string{"arrived", "holding", "prepped", "waiting", "scanning", "turnover", "exited"}
	assert.Equal(t, want, stageSequence(s.Feed.Records(), "patient_1"))

	// Inpatients skip registration and the changing rooms entirely.
	assert.Empty(t, grantsFor(s.Feed.Records(), ResRegistration))
	assert.Empty(t, grantsFor(s.Feed.Records(), ResChangeRooms))
	assert.Len(t, grantsFor(s.Feed.Records(), ResHoldingRoom), 4)
}

func TestWorkflow_InpatientOutranksOutpatientForMagnet(t *testing.T) {
	// Plenty of scan backlog: an outpatient and an inpatient both waiting
	// for magnet access, the inpatient admitted later but served first.
	s := mustSim(t, fixedConfig())

	require.True(t, s.MagnetAccess.TryAcquire("occupier"))
	var order []string
	grab := func(p *Patient) {
		s.MagnetAccess.Acquire(p.proc, p.MagnetPriority(), func(now float64) {
			order = append(order, p.ID)
			s.MagnetAccess.Release(p.ID)
		})
	}
	grab(NewPatient(1, ClassOutpatient))
	grab(NewPatient(2, ClassInpatient))

	s.MagnetAccess.Release("occupier")
	drain(s)
	assert.Equal(t, []string{"patient_2", "patient_1"}, order)
}

func TestWorkflow_WashroomDetourDelaysScan(t *testing.T) {
	cfg := fixedConfig()
	cfg.Probabilities.Washroom = 1
	cfg.Durations.Washroom = deg(4)

	s := mustRun(t, cfg)
	assert.Equal(t, 4, s.State.Completed)
	assert.Equal(t, 114.0, s.Clock)

	summary := s.Collector.Summarize()
	assert.InDelta(t, 4.0, summary.WaitMean, 1e-9)
}

func TestWorkflow_NoShowsNeverEnterTheSystem(t *testing.T) {
	cfg := fixedConfig()
	cfg.Probabilities.NoShow = 1

	s := mustRun(t, cfg)
	assert.Equal(t, 4, s.State.NoShows)
	assert.Equal(t, 0, s.State.PatientsArrived)
	assert.Equal(t, 0, s.State.Completed)
	assert.Empty(t, stageSequence(s.Feed.Records(), "patient_1"))
}

func TestWorkflow_LateArrivalShiftsJourneyStart(t *testing.T) {
	cfg := fixedConfig()
	cfg.Probabilities.Late = 1
	cfg.Durations.Lateness = deg(6)

	s := mustRun(t, cfg)
	assert.Equal(t, 4, s.State.Completed)
	// Every journey starts 6 minutes after its slot; the last scan ends at
	// 96 + 20.
	assert.Equal(t, 116.0, s.Clock)
}

func TestWorkflow_SerialModeInflatesMagnetOccupancy(t *testing.T) {
	// Six minutes of screening per patient: the parallel workflow does it
	// in a prep room, the serial workflow inside the magnet. Scanned
	// minutes match; occupied minutes differ by the prep time.
	base := fixedConfig()
	base.Durations.Screening = deg(6)

	parallel := base
	parallel.Mode = WorkflowParallel
	ps := mustRun(t, parallel).Collector.Summarize()

	serial := base
	serial.Mode = WorkflowSerial
	ss := mustRun(t, serial).Collector.Summarize()

	assert.InDelta(t, 80.0, ps.Aggregate.ScanMinutes, 1e-9)
	assert.InDelta(t, 80.0, ss.Aggregate.ScanMinutes, 1e-9)
	assert.InDelta(t, 0.0, ps.Aggregate.OverheadMinutes, 1e-9)
	assert.InDelta(t, 24.0, ss.Aggregate.OverheadMinutes, 1e-9)
	assert.Greater(t, ps.Aggregate.Efficiency, ss.Aggregate.Efficiency)
	assert.InDelta(t, 80.0/104.0, ss.Aggregate.Efficiency, 1e-9)

	// Serial mode never touches the prep rooms.
	for _, r := range ss.Resources {
		if r.Name == ResPrepRooms {
			assert.Zero(t, r.BusyMinutes)
		}
	}
}

func TestWorkflow_GapFillPromotesNoIVPatient(t *testing.T) {
	// White-box: two outpatients queued for the single prep room behind an
	// occupier, the first needing an IV. An idle magnet promotes the no-IV
	// patient past them.
	cfg := fixedConfig()
	cfg.GapFill = true
	s := mustSim(t, cfg)

	prep := s.Resource(ResPrepRooms)
	require.True(t, prep.TryAcquire("occupier"))

	var order []string
	enqueue := func(seq int, needsIV bool) {
		p := NewPatient(seq, ClassOutpatient)
		p.NeedsIV = needsIV
		s.workflow.patients[p.ID] = p
		prep.Acquire(p.proc, PriorityOutpatient, func(now float64) {
			order = append(order, p.ID)
			prep.Release(p.ID)
		})
	}
	enqueue(1, true)
	enqueue(2, false)

	s.workflow.gapFill(s.Magnets[0], 10)
	prep.Release("occupier")
	drain(s)
	assert.Equal(t, []string{"patient_2", "patient_1"}, order)
}

func TestWorkflow_GapFillSkipsWhenMagnetQueueBusy(t *testing.T) {
	cfg := fixedConfig()
	cfg.GapFill = true
	s := mustSim(t, cfg)

	// Someone is already waiting for magnet access, so there is no gap to
	// fill and the prep queue keeps its order.
	require.True(t, s.MagnetAccess.TryAcquire("occupier"))
	s.MagnetAccess.Acquire(NewProcess("queued"), PriorityOutpatient, func(now float64) {})

	prep := s.Resource(ResPrepRooms)
	require.True(t, prep.TryAcquire("occupier"))
	p := NewPatient(1, ClassOutpatient)
	s.workflow.patients[p.ID] = p
	prep.Acquire(p.proc, PriorityOutpatient, func(now float64) {})

	s.workflow.gapFill(s.Magnets[0], 10)
	assert.False(t, prep.waiting[0].priority == PriorityInpatient)
}
