package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// deg returns a degenerate triangular distribution that always yields v.
func deg(v float64) TriangularParams {
	return TriangularParams{Min: v, Mode: v, Max: v}
}

// fixedConfig is the deterministic baseline used across engine tests:
// one magnet, one of everything, arrivals every 30 minutes, 20-minute scans
// and every other activity instantaneous. Patients flow 0, 30, 60, 90 and the
// run drains at 110.
func fixedConfig() Config {
	cfg := DefaultConfig()
	cfg.ShiftMinutes = 120
	cfg.WarmUpMinutes = 0
	cfg.CoolDownMinutes = 0
	cfg.OvertimeLimitMinutes = 480
	cfg.MagnetCount = 1
	cfg.Staff = StaffCounts{Admin: 1, Porter: 1, BackupTech: 1, ScanTech: 1, Cleaner: 1}
	cfg.Rooms = RoomCounts{Change: 1, Prep: 1, Holding: 1}
	cfg.Mode = WorkflowParallel
	cfg.Probabilities = Probabilities{}
	cfg.Durations = ActivityDurations{
		InterArrival: deg(30),
		Lateness:     deg(0),
		Registration: deg(0),
		Transport:    deg(0),
		Change:       deg(0),
		Screening:    deg(0),
		IVSetup:      deg(0),
		IVDifficult:  deg(0),
		Washroom:     deg(0),
		Handover:     deg(0),
		ScanSetup:    deg(0),
		ScanExit:     deg(0),
		HoldingPrep:  deg(0),
		BedTransfer:  deg(0),
		TurnoverFast: deg(0),
		TurnoverSlow: deg(0),
	}
	cfg.Protocols = []ProtocolConfig{
		{Name: "Prostate", Weight: 1, ScanDuration: deg(20)},
	}
	cfg.GapFill = false
	cfg.GapFillIdleMinutes = 5
	cfg.AvgCycleMinutes = 20
	cfg.Seed = 7
	return cfg
}

func mustSim(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

func mustRun(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s := mustSim(t, cfg)
	require.NoError(t, s.Run())
	return s
}

// stageSequence extracts the ordered stage transitions of one patient.
func stageSequence(records []feed.Record, patientID string) []string {
	var out []string
	for _, r := range records {
		if r.Kind == feed.KindStageChange && r.PatientID == patientID {
			out = append(out, r.To)
		}
	}
	return out
}

// grantsFor extracts the holder IDs granted the named resource, in order.
func grantsFor(records []feed.Record, resource string) []string {
	var out []string
	for _, r := range records {
		if r.Kind == feed.KindResourceGrant && r.Resource == resource {
			out = append(out, r.PatientID)
		}
	}
	return out
}
