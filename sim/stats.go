package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mri-sim/mri-sim/sim/feed"
)

// Collector turns the run's feed into the reported statistics. It observes
// every record as it is published and keeps only windowed aggregates plus the
// retained records themselves; nothing is recomputed from patient objects
// after the run.
//
// Windowing: duration aggregates (waits, magnet phase minutes, resource busy
// minutes) are clipped to [warm-up, shift end minus cool-down]. Completion
// counts use only the warm-up cutoff, since a scan finishing in overtime is
// still a completed scan. Retained records start at the warm-up boundary and
// are re-based so the reported timeline starts at zero.
type Collector struct {
	winStart float64
	winEnd   float64
	endClock float64
	valid    bool

	retained []feed.Record

	magnetOrder []string
	magnets     map[string]*magnetAccum

	resCaps map[string]int
	resOpen map[string]map[string]float64
	resBusy map[string]float64

	waitSince map[string]float64
	waits     []float64

	completed           int
	completedByClass    map[string]int
	completedByProtocol map[string]int
}

type magnetAccum struct {
	phase      string
	phaseSince float64

	scanMinutes     float64
	overheadMinutes float64
	idleMinutes     float64
	completions     int
}

// NewCollector builds a collector for one run.
func NewCollector(cfg Config, magnetIDs []string) *Collector {
	c := &Collector{
		winStart:            cfg.WarmUpMinutes,
		winEnd:              cfg.ShiftMinutes - cfg.CoolDownMinutes,
		valid:               true,
		magnetOrder:         magnetIDs,
		magnets:             make(map[string]*magnetAccum),
		resOpen:             make(map[string]map[string]float64),
		resBusy:             make(map[string]float64),
		waitSince:           make(map[string]float64),
		completedByClass:    make(map[string]int),
		completedByProtocol: make(map[string]int),
		resCaps: map[string]int{
			ResRegistration: cfg.Staff.Admin,
			ResPorter:       cfg.Staff.Porter,
			ResBackupTech:   cfg.Staff.BackupTech,
			ResScanTech:     cfg.Staff.ScanTech,
			ResCleaner:      cfg.Staff.Cleaner,
			ResChangeRooms:  cfg.Rooms.Change,
			ResPrepRooms:    cfg.Rooms.Prep,
			ResHoldingRoom:  cfg.Rooms.Holding,
			ResMagnetAccess: cfg.MagnetCount,
		},
	}
	for _, id := range magnetIDs {
		c.magnets[id] = &magnetAccum{phase: PhaseIdle}
	}
	return c
}

// Observe implements feed.Observer.
func (c *Collector) Observe(r feed.Record) {
	if r.Timestamp >= c.winStart {
		c.retained = append(c.retained, r)
	}
	switch r.Kind {
	case feed.KindMagnetStateChange:
		c.observeMagnet(r)
	case feed.KindResourceGrant:
		open, ok := c.resOpen[r.Resource]
		if !ok {
			open = make(map[string]float64)
			c.resOpen[r.Resource] = open
		}
		open[r.PatientID] = r.Timestamp
	case feed.KindResourceRelease:
		if since, ok := c.resOpen[r.Resource][r.PatientID]; ok {
			c.resBusy[r.Resource] += c.clip(since, r.Timestamp)
			delete(c.resOpen[r.Resource], r.PatientID)
		}
	case feed.KindStageChange:
		c.observeStage(r)
	}
}

func (c *Collector) observeMagnet(r feed.Record) {
	m, ok := c.magnets[r.Magnet]
	if !ok {
		return
	}
	c.closePhase(m, r.Timestamp)
	if r.Phase == PhaseTurnover && r.Timestamp >= c.winStart {
		m.completions++
	}
	m.phase = r.Phase
	m.phaseSince = r.Timestamp
}

func (c *Collector) observeStage(r feed.Record) {
	if r.To == string(StageWaiting) {
		c.waitSince[r.PatientID] = r.Timestamp
	}
	if r.From == string(StageWaiting) {
		if since, ok := c.waitSince[r.PatientID]; ok {
			if r.Timestamp >= c.winStart && r.Timestamp <= c.winEnd {
				c.waits = append(c.waits, r.Timestamp-since)
			}
			delete(c.waitSince, r.PatientID)
		}
	}
	if r.To == string(StageExited) && r.Timestamp >= c.winStart {
		c.completed++
		c.completedByClass[r.Class]++
		c.completedByProtocol[r.Protocol]++
	}
}

// closePhase folds the magnet's current phase interval into its buckets.
func (c *Collector) closePhase(m *magnetAccum, until float64) {
	d := c.clip(m.phaseSince, until)
	if d <= 0 {
		return
	}
	switch m.phase {
	case PhaseIdle:
		m.idleMinutes += d
	case PhaseScanning:
		m.scanMinutes += d
	default:
		m.overheadMinutes += d
	}
}

// clip returns the portion of [start, end] inside the reporting window.
func (c *Collector) clip(start, end float64) float64 {
	lo := math.Max(start, c.winStart)
	hi := math.Min(end, c.winEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Invalidate discards the run's statistics after an aborted run. A collector
// that has been invalidated reports Valid false and empty aggregates.
func (c *Collector) Invalidate() {
	c.valid = false
}

// Finalize closes all open intervals at the end of the run. An idle magnet's
// tail extends to the window end even when the run drained earlier, since the
// magnet would have sat idle through it.
func (c *Collector) Finalize(endClock float64) {
	c.endClock = endClock
	for _, id := range c.magnetOrder {
		m := c.magnets[id]
		until := endClock
		if m.phase == PhaseIdle && c.winEnd > until {
			until = c.winEnd
		}
		c.closePhase(m, until)
		m.phaseSince = until
	}
	for res, open := range c.resOpen {
		for holder, since := range open {
			c.resBusy[res] += c.clip(since, endClock)
			delete(open, holder)
		}
	}
}

// MagnetSummary reports one magnet's windowed occupancy breakdown. Busy is
// value-added scanning only; occupied adds the overhead phases (prep,
// handover, setup, exit, transfer, turnover). Efficiency is the value-added
// share of occupied time.
type MagnetSummary struct {
	ID               string
	ScanMinutes      float64
	OverheadMinutes  float64
	IdleMinutes      float64
	BusyFraction     float64
	OccupiedFraction float64
	Efficiency       float64
	Completions      int
}

// ResourceSummary reports one resource's windowed utilization.
type ResourceSummary struct {
	Name        string
	Capacity    int
	BusyMinutes float64
	Utilization float64
}

// Summary is the reported output of a run.
type Summary struct {
	Valid       bool
	WindowStart float64
	WindowEnd   float64
	EndClock    float64

	Completed           int
	CompletedByClass    map[string]int
	CompletedByProtocol map[string]int

	WaitCount int
	WaitMean  float64
	WaitMax   float64
	WaitP95   float64

	Magnets   []MagnetSummary
	Aggregate MagnetSummary
	Resources []ResourceSummary
}

// Summarize computes the run summary. Call after Finalize.
func (c *Collector) Summarize() Summary {
	s := Summary{
		Valid:               c.valid,
		WindowStart:         c.winStart,
		WindowEnd:           c.winEnd,
		EndClock:            c.endClock,
		CompletedByClass:    map[string]int{},
		CompletedByProtocol: map[string]int{},
	}
	if !c.valid {
		return s
	}
	s.Completed = c.completed
	for k, v := range c.completedByClass {
		s.CompletedByClass[k] = v
	}
	for k, v := range c.completedByProtocol {
		s.CompletedByProtocol[k] = v
	}

	if len(c.waits) > 0 {
		sorted := append([]float64(nil), c.waits...)
		sort.Float64s(sorted)
		s.WaitCount = len(sorted)
		s.WaitMean = stat.Mean(sorted, nil)
		s.WaitMax = sorted[len(sorted)-1]
		s.WaitP95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	window := c.winEnd - c.winStart
	for _, id := range c.magnetOrder {
		m := c.magnets[id]
		ms := MagnetSummary{
			ID:              id,
			ScanMinutes:     m.scanMinutes,
			OverheadMinutes: m.overheadMinutes,
			IdleMinutes:     m.idleMinutes,
			Completions:     m.completions,
		}
		if window > 0 {
			ms.BusyFraction = m.scanMinutes / window
			ms.OccupiedFraction = (m.scanMinutes + m.overheadMinutes) / window
		}
		if occ := m.scanMinutes + m.overheadMinutes; occ > 0 {
			ms.Efficiency = m.scanMinutes / occ
		}
		s.Magnets = append(s.Magnets, ms)

		s.Aggregate.ScanMinutes += ms.ScanMinutes
		s.Aggregate.OverheadMinutes += ms.OverheadMinutes
		s.Aggregate.IdleMinutes += ms.IdleMinutes
		s.Aggregate.Completions += ms.Completions
	}
	s.Aggregate.ID = "all"
	if total := window * float64(len(c.magnetOrder)); total > 0 {
		s.Aggregate.BusyFraction = s.Aggregate.ScanMinutes / total
		s.Aggregate.OccupiedFraction = (s.Aggregate.ScanMinutes + s.Aggregate.OverheadMinutes) / total
	}
	if occ := s.Aggregate.ScanMinutes + s.Aggregate.OverheadMinutes; occ > 0 {
		s.Aggregate.Efficiency = s.Aggregate.ScanMinutes / occ
	}

	names := make([]string, 0, len(c.resCaps))
	for name := range c.resCaps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		capacity := c.resCaps[name]
		rs := ResourceSummary{Name: name, Capacity: capacity, BusyMinutes: c.resBusy[name]}
		if total := window * float64(capacity); total > 0 {
			rs.Utilization = rs.BusyMinutes / total
		}
		s.Resources = append(s.Resources, rs)
	}
	return s
}

// Records returns the retained feed records re-based to the warm-up boundary:
// the first reportable instant becomes time zero.
func (c *Collector) Records() []feed.Record {
	if !c.valid {
		return nil
	}
	out := make([]feed.Record, len(c.retained))
	for i, r := range c.retained {
		r.Timestamp -= c.winStart
		out[i] = r
	}
	return out
}
