package sim

import "fmt"

// WorkflowMode selects how prep relates to magnet occupancy.
type WorkflowMode string

const (
	// WorkflowSerial preps the patient inside the magnet room: the magnet is
	// occupied (but not scanning) for the whole prep. This is the baseline
	// workflow whose inflated occupancy motivates the pit-crew redesign.
	WorkflowSerial WorkflowMode = "serial"

	// WorkflowParallel preps the patient in a prep room and only then queues
	// for the magnet (pit-crew workflow).
	WorkflowParallel WorkflowMode = "parallel"
)

// StaffCounts configures the number of staff per role.
type StaffCounts struct {
	Admin      int `yaml:"admin"`
	Porter     int `yaml:"porter"`
	BackupTech int `yaml:"backup_tech"`
	ScanTech   int `yaml:"scan_tech"`
	Cleaner    int `yaml:"cleaner"`
}

// RoomCounts configures the physical room capacities outside the magnets.
type RoomCounts struct {
	Change  int `yaml:"change"`
	Prep    int `yaml:"prep"`
	Holding int `yaml:"holding"`
}

// Probabilities configures the clinical branching draws. All values are
// probabilities in [0, 1].
type Probabilities struct {
	IV          float64 `yaml:"iv"`           // patient needs an IV line
	DifficultIV float64 `yaml:"difficult_iv"` // IV is difficult, given needs-IV
	Inpatient   float64 `yaml:"inpatient"`
	NoShow      float64 `yaml:"no_show"`
	Late        float64 `yaml:"late"`
	Washroom    float64 `yaml:"washroom"` // interruption while buffer-waiting
}

// ActivityDurations configures the triangular distribution of every timed
// activity, in minutes.
type ActivityDurations struct {
	InterArrival TriangularParams `yaml:"inter_arrival"`
	Lateness     TriangularParams `yaml:"lateness"`
	Registration TriangularParams `yaml:"registration"`
	Transport    TriangularParams `yaml:"transport"`
	Change       TriangularParams `yaml:"change"`
	Screening    TriangularParams `yaml:"screening"`
	IVSetup      TriangularParams `yaml:"iv_setup"`
	IVDifficult  TriangularParams `yaml:"iv_difficult"`
	Washroom     TriangularParams `yaml:"washroom"`
	Handover     TriangularParams `yaml:"handover"`
	ScanSetup    TriangularParams `yaml:"scan_setup"`
	ScanExit     TriangularParams `yaml:"scan_exit"`
	HoldingPrep  TriangularParams `yaml:"holding_prep"`
	BedTransfer  TriangularParams `yaml:"bed_transfer"`
	TurnoverFast TriangularParams `yaml:"turnover_fast"`
	TurnoverSlow TriangularParams `yaml:"turnover_slow"`
}

// ProtocolConfig describes one exam protocol in the case mix.
type ProtocolConfig struct {
	Name         string           `yaml:"name"`
	Weight       float64          `yaml:"weight"`
	ScanDuration TriangularParams `yaml:"scan_duration"`
}

// Config is the full per-run configuration. It is initialized once per run
// and never mutated after Validate; RunState carries the mutable counters.
type Config struct {
	ShiftMinutes    float64 `yaml:"shift_minutes"`
	WarmUpMinutes   float64 `yaml:"warm_up_minutes"`
	CoolDownMinutes float64 `yaml:"cool_down_minutes"`

	// OvertimeLimitMinutes bounds the run-to-clear phase past shift end.
	// Exceeding it is a consistency failure: the modeled system cannot clear.
	OvertimeLimitMinutes float64 `yaml:"overtime_limit_minutes"`

	MagnetCount int          `yaml:"magnet_count"`
	Staff       StaffCounts  `yaml:"staff"`
	Rooms       RoomCounts   `yaml:"rooms"`
	Mode        WorkflowMode `yaml:"mode"`

	Probabilities Probabilities     `yaml:"probabilities"`
	Durations     ActivityDurations `yaml:"durations"`
	Protocols     []ProtocolConfig  `yaml:"protocols"`

	// GapFill enables the singles-line policy: when a magnet has been
	// clean-idle past GapFillIdleMinutes, the first no-IV patient waiting for
	// a prep room is promoted. Prep ordering only; magnet priority is never
	// touched.
	GapFill            bool    `yaml:"gap_fill"`
	GapFillIdleMinutes float64 `yaml:"gap_fill_idle_minutes"`

	// AvgCycleMinutes is the gatekeeper's queue-burden heuristic: arrivals
	// stop once patientsInSystem * AvgCycleMinutes / MagnetCount exceeds the
	// remaining shift time. A tunable policy knob, not a derived invariant.
	AvgCycleMinutes float64 `yaml:"avg_cycle_minutes"`

	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the empirical baseline scenario. Activity parameters
// derive from the department's observed time studies (seconds converted to
// minutes).
func DefaultConfig() Config {
	return Config{
		ShiftMinutes:         720,
		WarmUpMinutes:        60,
		CoolDownMinutes:      0,
		OvertimeLimitMinutes: 480,
		MagnetCount:          2,
		Staff: StaffCounts{
			Admin:      1,
			Porter:     1,
			BackupTech: 2,
			ScanTech:   2,
			Cleaner:    1,
		},
		Rooms: RoomCounts{
			Change:  3,
			Prep:    2,
			Holding: 2,
		},
		Mode: WorkflowParallel,
		Probabilities: Probabilities{
			IV:          0.33,
			DifficultIV: 0.01,
			Inpatient:   0.10,
			NoShow:      0.05,
			Late:        0.10,
			Washroom:    0.20,
		},
		Durations: ActivityDurations{
			InterArrival: TriangularParams{Min: 15, Mode: 30, Max: 45},
			Lateness:     TriangularParams{Min: 5, Mode: 10, Max: 20},
			Registration: TriangularParams{Min: 1.5, Mode: 2.5, Max: 4.5},
			Transport:    TriangularParams{Min: 1, Mode: 2, Max: 4},
			Change:       TriangularParams{Min: 92.0 / 60, Mode: 190.0 / 60, Max: 347.0 / 60},
			Screening:    TriangularParams{Min: 125.0 / 60, Mode: 191.0 / 60, Max: 309.0 / 60},
			IVSetup:      TriangularParams{Min: 92.0 / 60, Mode: 153.0 / 60, Max: 245.0 / 60},
			IVDifficult:  TriangularParams{Min: 5, Mode: 8, Max: 15},
			Washroom:     TriangularParams{Min: 2, Mode: 4, Max: 7},
			Handover:     TriangularParams{Min: 1.5, Mode: 2, Max: 3},
			ScanSetup:    TriangularParams{Min: 1, Mode: 2, Max: 3.5},
			ScanExit:     TriangularParams{Min: 0.5, Mode: 1, Max: 2},
			HoldingPrep:  TriangularParams{Min: 10, Mode: 15, Max: 25},
			BedTransfer:  TriangularParams{Min: 2, Mode: 3, Max: 5},
			TurnoverFast: TriangularParams{Min: 0.8, Mode: 1, Max: 1.5},
			TurnoverSlow: TriangularParams{Min: 4, Mode: 5, Max: 7},
		},
		Protocols: []ProtocolConfig{
			{Name: "Prostate", Weight: 0.4, ScanDuration: TriangularParams{Min: 17, Mode: 22, Max: 30}},
			{Name: "Brain", Weight: 0.35, ScanDuration: TriangularParams{Min: 15, Mode: 20, Max: 28}},
			{Name: "MSK", Weight: 0.25, ScanDuration: TriangularParams{Min: 20, Mode: 25, Max: 35}},
		},
		GapFill:            true,
		GapFillIdleMinutes: 5,
		AvgCycleMinutes:    45,
		Seed:               42,
	}
}

// Validate checks every configuration value and returns a ConfigurationError
// for the first violation found. A run never starts on an invalid Config.
func (c *Config) Validate() error {
	if c.ShiftMinutes <= 0 {
		return &ConfigurationError{Field: "shift_minutes", Value: c.ShiftMinutes, Reason: "must be > 0"}
	}
	if c.WarmUpMinutes < 0 {
		return &ConfigurationError{Field: "warm_up_minutes", Value: c.WarmUpMinutes, Reason: "must be >= 0"}
	}
	if c.CoolDownMinutes < 0 {
		return &ConfigurationError{Field: "cool_down_minutes", Value: c.CoolDownMinutes, Reason: "must be >= 0"}
	}
	if c.WarmUpMinutes+c.CoolDownMinutes >= c.ShiftMinutes {
		return &ConfigurationError{
			Field:  "warm_up_minutes",
			Value:  c.WarmUpMinutes,
			Reason: "warm-up plus cool-down must leave a non-empty collection window",
		}
	}
	if c.OvertimeLimitMinutes <= 0 {
		return &ConfigurationError{Field: "overtime_limit_minutes", Value: c.OvertimeLimitMinutes, Reason: "must be > 0"}
	}
	if c.MagnetCount < 1 {
		return &ConfigurationError{Field: "magnet_count", Value: c.MagnetCount, Reason: "must be >= 1"}
	}
	if c.Mode != WorkflowSerial && c.Mode != WorkflowParallel {
		return &ConfigurationError{Field: "mode", Value: c.Mode, Reason: `must be "serial" or "parallel"`}
	}
	for _, rc := range []struct {
		field string
		n     int
	}{
		{"staff.admin", c.Staff.Admin},
		{"staff.porter", c.Staff.Porter},
		{"staff.backup_tech", c.Staff.BackupTech},
		{"staff.scan_tech", c.Staff.ScanTech},
		{"staff.cleaner", c.Staff.Cleaner},
		{"rooms.change", c.Rooms.Change},
		{"rooms.prep", c.Rooms.Prep},
		{"rooms.holding", c.Rooms.Holding},
	} {
		if rc.n < 1 {
			return &ConfigurationError{Field: rc.field, Value: rc.n, Reason: "must be >= 1"}
		}
	}
	for _, pc := range []struct {
		field string
		p     float64
	}{
		{"probabilities.iv", c.Probabilities.IV},
		{"probabilities.difficult_iv", c.Probabilities.DifficultIV},
		{"probabilities.inpatient", c.Probabilities.Inpatient},
		{"probabilities.no_show", c.Probabilities.NoShow},
		{"probabilities.late", c.Probabilities.Late},
		{"probabilities.washroom", c.Probabilities.Washroom},
	} {
		if pc.p < 0 || pc.p > 1 {
			return &ConfigurationError{Field: pc.field, Value: pc.p, Reason: "must be in [0, 1]"}
		}
	}
	for _, dc := range []struct {
		field string
		p     TriangularParams
	}{
		{"durations.inter_arrival", c.Durations.InterArrival},
		{"durations.lateness", c.Durations.Lateness},
		{"durations.registration", c.Durations.Registration},
		{"durations.transport", c.Durations.Transport},
		{"durations.change", c.Durations.Change},
		{"durations.screening", c.Durations.Screening},
		{"durations.iv_setup", c.Durations.IVSetup},
		{"durations.iv_difficult", c.Durations.IVDifficult},
		{"durations.washroom", c.Durations.Washroom},
		{"durations.handover", c.Durations.Handover},
		{"durations.scan_setup", c.Durations.ScanSetup},
		{"durations.scan_exit", c.Durations.ScanExit},
		{"durations.holding_prep", c.Durations.HoldingPrep},
		{"durations.bed_transfer", c.Durations.BedTransfer},
		{"durations.turnover_fast", c.Durations.TurnoverFast},
		{"durations.turnover_slow", c.Durations.TurnoverSlow},
	} {
		if err := dc.p.Validate(dc.field); err != nil {
			return err
		}
	}
	if len(c.Protocols) == 0 {
		return &ConfigurationError{Field: "protocols", Value: nil, Reason: "at least one protocol required"}
	}
	for i, p := range c.Protocols {
		if p.Name == "" {
			return &ConfigurationError{Field: fmt.Sprintf("protocols[%d].name", i), Value: p.Name, Reason: "must be non-empty"}
		}
		if p.Weight <= 0 {
			return &ConfigurationError{Field: fmt.Sprintf("protocols[%d].weight", i), Value: p.Weight, Reason: "must be > 0"}
		}
		if err := p.ScanDuration.Validate(fmt.Sprintf("protocols[%d].scan_duration", i)); err != nil {
			return err
		}
	}
	if c.GapFill && c.GapFillIdleMinutes <= 0 {
		return &ConfigurationError{Field: "gap_fill_idle_minutes", Value: c.GapFillIdleMinutes, Reason: "must be > 0 when gap_fill is enabled"}
	}
	if c.AvgCycleMinutes <= 0 {
		return &ConfigurationError{Field: "avg_cycle_minutes", Value: c.AvgCycleMinutes, Reason: "must be > 0"}
	}
	return nil
}

// MaxScanMinutes returns the longest possible magnet occupancy for a single
// scan: the gatekeeper's worst-case bound for late admissions.
func (c *Config) MaxScanMinutes() float64 {
	maxScan := 0.0
	for _, p := range c.Protocols {
		if p.ScanDuration.UpperBound() > maxScan {
			maxScan = p.ScanDuration.UpperBound()
		}
	}
	return maxScan + c.Durations.Handover.UpperBound() +
		c.Durations.ScanSetup.UpperBound() + c.Durations.ScanExit.UpperBound()
}
