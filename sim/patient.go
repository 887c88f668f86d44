package sim

import "fmt"

// Class is the patient classification tag. The two variants carry different
// journeys: outpatients walk the full registration path, inpatients bypass
// registration and changing, entering through the holding room with magnet
// priority.
type Class string

const (
	ClassOutpatient Class = "outpatient"
	ClassInpatient  Class = "inpatient"
)

// Stage enumerates the patient workflow states.
type Stage string

const (
	StageArrived    Stage = "arrived"
	StageRegistered Stage = "registered"
	StageChanging   Stage = "changing"
	StageHolding    Stage = "holding" // inpatient transfer stage
	StagePrepped    Stage = "prepped"
	StageWaiting    Stage = "waiting"
	StageScanning   Stage = "scanning"
	StageTurnover   Stage = "turnover"
	StageExited     Stage = "exited"
)

// StageInterval records a patient's entry into a stage and, once the next
// transition happens, the exit time. Exit < 0 marks a still-open interval.
type StageInterval struct {
	Stage Stage
	Enter float64
	Exit  float64
}

// Patient is a simulated patient. Created by the arrival generator, mutated
// only by the workflow engine, retained by the statistics collector after
// exit.
type Patient struct {
	ID    string
	Class Class

	// Clinical flags, drawn once at admission from the classification RNG.
	NeedsIV     bool
	DifficultIV bool
	Protocol    string

	// IsLate delays the journey start by a sampled lateness.
	IsLate    bool
	LateDelay float64

	ArrivalTime float64
	ExitTime    float64

	Stage    Stage
	StageLog []StageInterval

	// MagnetID is set while the patient holds a magnet.
	MagnetID string

	proc *Process
}

// NewPatient creates a patient with its process context.
func NewPatient(seq int, class Class) *Patient {
	id := fmt.Sprintf("patient_%d", seq)
	return &Patient{
		ID:       id,
		Class:    class,
		ExitTime: -1,
		proc:     NewProcess(id),
	}
}

// MagnetPriority returns the patient's magnet-queue priority.
// Inpatients outrank outpatients; they never preempt an in-progress scan.
func (p *Patient) MagnetPriority() int {
	if p.Class == ClassInpatient {
		return PriorityInpatient
	}
	return PriorityOutpatient
}

// enterStage closes the current stage interval and opens the next one.
// Stage bookkeeping is local; the feed record is published by the workflow.
func (p *Patient) enterStage(s Stage, now float64) {
	if n := len(p.StageLog); n > 0 && p.StageLog[n-1].Exit < 0 {
		p.StageLog[n-1].Exit = now
	}
	p.Stage = s
	p.StageLog = append(p.StageLog, StageInterval{Stage: s, Enter: now, Exit: -1})
}

// Magnet queue priorities: lower value is served first.
const (
	PriorityInpatient  = 0
	PriorityOutpatient = 1
)
