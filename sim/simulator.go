package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// RunState holds the process-wide mutable counters for a single run.
// Initialized once per run, torn down at run end; nothing persists across
// runs.
type RunState struct {
	GeneratorActive   bool
	PatientsArrived   int
	PatientsInSystem  int
	NoShows           int
	Completed         int
	TurnoversInFlight int
}

// Simulator owns the virtual clock, the event queue, the resources and the
// workflow engine for one run. Single-threaded cooperative execution: each
// event callback runs to its next suspension point before the next event is
// popped, so no data races are possible by construction.
type Simulator struct {
	Config Config

	Clock      float64
	EventQueue *EventHeap
	RNG        *PartitionedRNG
	Sampler    *Sampler
	Feed       *feed.Feed
	Collector  *Collector
	State      RunState

	Magnets      []*Magnet
	MagnetAccess *Resource

	resources map[string]*Resource
	workflow  *Workflow

	nextEventID  uint64
	blockedProcs int
	patientSeq   int
}

// Resource names recognized by the engine. Requesting any other name is a
// fatal configuration error.
const (
	ResRegistration = "registration"
	ResPorter       = "porter"
	ResBackupTech   = "backup_tech"
	ResScanTech     = "scan_tech"
	ResCleaner      = "cleaner"
	ResChangeRooms  = "change_rooms"
	ResPrepRooms    = "prep_rooms"
	ResHoldingRoom  = "holding_room"
	ResMagnetAccess = "magnet_access"
)

// NewSimulator validates the configuration and assembles a run.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		Config:     cfg,
		EventQueue: NewEventHeap(),
		RNG:        NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		Feed:       feed.New(),
		resources:  make(map[string]*Resource),
	}
	s.Sampler = NewSampler(s.RNG)

	for i := 0; i < cfg.MagnetCount; i++ {
		s.Magnets = append(s.Magnets, newMagnet(s, fmt.Sprintf("magnet_%d", i+1)))
	}

	s.addResource(ResRegistration, cfg.Staff.Admin, DisciplineFIFO)
	s.addResource(ResPorter, cfg.Staff.Porter, DisciplineFIFO)
	s.addResource(ResBackupTech, cfg.Staff.BackupTech, DisciplineFIFO)
	s.addResource(ResScanTech, cfg.Staff.ScanTech, DisciplineFIFO)
	s.addResource(ResCleaner, cfg.Staff.Cleaner, DisciplineFIFO)
	s.addResource(ResChangeRooms, cfg.Rooms.Change, DisciplineFIFO)
	s.addResource(ResPrepRooms, cfg.Rooms.Prep, DisciplinePriority)
	s.addResource(ResHoldingRoom, cfg.Rooms.Holding, DisciplineFIFO)
	s.MagnetAccess = s.addResource(ResMagnetAccess, cfg.MagnetCount, DisciplinePriority)

	magnetIDs := make([]string, len(s.Magnets))
	for i, m := range s.Magnets {
		magnetIDs[i] = m.ID
	}
	s.Collector = NewCollector(cfg, magnetIDs)
	s.Feed.Attach(s.Collector)

	s.workflow = NewWorkflow(s)
	return s, nil
}

func (s *Simulator) addResource(name string, capacity int, d Discipline) *Resource {
	r := newResource(s, name, capacity, d)
	s.resources[name] = r
	return r
}

// Resource returns the named resource. Unknown names are a fatal
// configuration error, surfaced immediately.
func (s *Simulator) Resource(name string) *Resource {
	r, ok := s.resources[name]
	if !ok {
		panic(&ConfigurationError{Field: "resource", Value: name, Reason: "not recognized by the engine"})
	}
	return r
}

// newEventID generates the next event ID, the deterministic FIFO tie-breaker.
func (s *Simulator) newEventID() uint64 {
	s.nextEventID++
	return s.nextEventID
}

// ScheduleEvent adds an event to the queue.
func (s *Simulator) ScheduleEvent(e Event) {
	s.EventQueue.Schedule(e)
}

// ScheduleArrival enqueues an arrival admission at the given time.
func (s *Simulator) ScheduleArrival(at float64) {
	s.ScheduleEvent(&ArrivalEvent{BaseEvent: BaseEvent{timestamp: at, eventID: s.newEventID(), eventType: EventTypeArrival}})
}

// Wait suspends proc for delay minutes, then resumes it. Scheduling a
// negative or NaN delay is a programming error: fail fast.
func (s *Simulator) Wait(proc *Process, delay float64, resume func(now float64)) {
	if delay < 0 || delay != delay {
		panic(&ConsistencyError{
			Invariant: "non-negative delay",
			Detail:    fmt.Sprintf("process %s scheduled delay %v", proc.ID, delay),
		})
	}
	s.ScheduleEvent(&ActivityCompleteEvent{
		BaseEvent: BaseEvent{timestamp: s.Clock + delay, eventID: s.newEventID(), eventType: EventTypeActivityComplete},
		Process:   proc,
		resume:    resume,
	})
}

// After schedules a control callback delay minutes from now.
func (s *Simulator) After(delay float64, fn func(now float64)) {
	if delay < 0 || delay != delay {
		panic(&ConsistencyError{Invariant: "non-negative delay", Detail: fmt.Sprintf("control delay %v", delay)})
	}
	s.ScheduleEvent(&ControlEvent{
		BaseEvent: BaseEvent{timestamp: s.Clock + delay, eventID: s.newEventID(), eventType: EventTypeControl},
		fn:        fn,
	})
}

// scheduleGrant enqueues the resumption of a waiter whose slot was reserved
// during Release.
func (s *Simulator) scheduleGrant(r *Resource, w *waiter) {
	s.ScheduleEvent(&ResourceGrantEvent{
		BaseEvent: BaseEvent{timestamp: s.Clock, eventID: s.newEventID(), eventType: EventTypeResourceGrant},
		Resource:  r,
		Waiter:    w,
	})
}

func (s *Simulator) handleResourceGrant(e *ResourceGrantEvent) {
	w := e.Waiter
	w.proc.blockedOn = nil
	s.blockedProcs--
	w.grant(e.Timestamp())
}

func (s *Simulator) handleArrival(e *ArrivalEvent) {
	s.workflow.Admit(e.Timestamp())
}

// publish stamps a record with the current clock and fans it out.
func (s *Simulator) publish(r feed.Record) {
	r.Timestamp = s.Clock
	s.Feed.Publish(r)
}

// Run executes the simulation to completion: arrivals flow while the
// gatekeeper allows them, then the run-to-clear phase drains the system.
// Engine invariant violations and sampling failures abort the run; partial
// statistics are discarded, never reported.
func (s *Simulator) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch fatal := r.(type) {
			case *ConsistencyError, *ConfigurationError, *SamplingError:
				s.Collector.Invalidate()
				err = fatal.(error)
			default:
				panic(r)
			}
		}
	}()

	logrus.Infof("starting run: shift=%.0fmin warm-up=%.0fmin magnets=%d mode=%s seed=%d",
		s.Config.ShiftMinutes, s.Config.WarmUpMinutes, s.Config.MagnetCount, s.Config.Mode, s.Config.Seed)

	s.State.GeneratorActive = true
	s.ScheduleArrival(0)
	if s.Config.GapFill {
		s.workflow.scheduleIdleChecks()
	}

	s.RunUntil(func(now float64) bool {
		return !s.State.GeneratorActive && s.State.PatientsInSystem == 0 && s.State.TurnoversInFlight == 0
	})

	s.Collector.Finalize(s.Clock)
	logrus.Infof("run complete at %.1fmin: %d arrived, %d completed, %d no-shows",
		s.Clock, s.State.PatientsArrived, s.State.Completed, s.State.NoShows)
	return nil
}

// RunUntil pops and executes events until the predicate holds or the queue
// empties. An empty queue with suspended processes is a deadlock and is
// reported as a fatal consistency error, never silently ignored.
func (s *Simulator) RunUntil(done func(now float64) bool) {
	overtimeBound := s.Config.ShiftMinutes + s.Config.OvertimeLimitMinutes
	for {
		if done(s.Clock) {
			return
		}
		event := s.EventQueue.PopNext()
		if event == nil {
			if s.blockedProcs > 0 {
				panic(&ConsistencyError{
					Invariant: "no deadlock",
					Detail:    fmt.Sprintf("event queue empty with %d blocked processes", s.blockedProcs),
				})
			}
			return
		}
		if event.Timestamp() < s.Clock {
			panic(&ConsistencyError{
				Invariant: "monotonic clock",
				Detail:    fmt.Sprintf("event at %v behind clock %v", event.Timestamp(), s.Clock),
			})
		}
		if event.Timestamp() > overtimeBound {
			panic(&ConsistencyError{
				Invariant: "bounded overtime",
				Detail: fmt.Sprintf("clock %v exceeds shift plus overtime limit %v with %d patients in system",
					event.Timestamp(), overtimeBound, s.State.PatientsInSystem),
			})
		}
		s.Clock = event.Timestamp()
		event.Execute(s)
	}
}
