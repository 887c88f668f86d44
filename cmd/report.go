package cmd

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	sim "github.com/mri-sim/mri-sim/sim"
	"github.com/mri-sim/mri-sim/sim/feed"
)

// PrintSummary writes one run's report to stdout.
func PrintSummary(s sim.Summary) {
	fmt.Printf("=== Run summary ===\n")
	fmt.Printf("Reporting window: [%.0f, %.0f] min (run ended at %.1f)\n", s.WindowStart, s.WindowEnd, s.EndClock)
	fmt.Printf("Completed scans: %d", s.Completed)
	if len(s.CompletedByClass) > 0 {
		fmt.Printf("  (outpatient=%d, inpatient=%d)", s.CompletedByClass["outpatient"], s.CompletedByClass["inpatient"])
	}
	fmt.Println()
	for proto, n := range s.CompletedByProtocol {
		fmt.Printf("  protocol %-12s %d\n", proto, n)
	}
	if s.WaitCount > 0 {
		fmt.Printf("Buffer wait (n=%d): mean=%.1f min, p95=%.1f min, max=%.1f min\n",
			s.WaitCount, s.WaitMean, s.WaitP95, s.WaitMax)
	}

	fmt.Printf("\n%-10s %8s %8s %8s %6s %6s %6s %5s\n",
		"magnet", "scan", "overhead", "idle", "busy", "occ", "eff", "done")
	for _, m := range append(s.Magnets, s.Aggregate) {
		fmt.Printf("%-10s %8.1f %8.1f %8.1f %5.1f%% %5.1f%% %5.1f%% %5d\n",
			m.ID, m.ScanMinutes, m.OverheadMinutes, m.IdleMinutes,
			100*m.BusyFraction, 100*m.OccupiedFraction, 100*m.Efficiency, m.Completions)
	}

	fmt.Printf("\n%-14s %4s %10s %6s\n", "resource", "cap", "busy(min)", "util")
	for _, r := range s.Resources {
		fmt.Printf("%-14s %4d %10.1f %5.1f%%\n", r.Name, r.Capacity, r.BusyMinutes, 100*r.Utilization)
	}
}

// PrintReplications reports across-replication aggregates, then each run.
func PrintReplications(summaries []sim.Summary) {
	completed := make([]float64, len(summaries))
	busy := make([]float64, len(summaries))
	waits := make([]float64, len(summaries))
	for i, s := range summaries {
		completed[i] = float64(s.Completed)
		busy[i] = s.Aggregate.BusyFraction
		waits[i] = s.WaitMean
	}
	fmt.Printf("=== %d replications ===\n", len(summaries))
	fmt.Printf("Completed scans: mean=%.1f stddev=%.1f\n", stat.Mean(completed, nil), stat.StdDev(completed, nil))
	fmt.Printf("Magnet busy:     mean=%.1f%% stddev=%.1f%%\n", 100*stat.Mean(busy, nil), 100*stat.StdDev(busy, nil))
	fmt.Printf("Mean wait:       mean=%.1f min stddev=%.1f min\n\n", stat.Mean(waits, nil), stat.StdDev(waits, nil))
	for i, s := range summaries {
		fmt.Printf("--- replication %d ---\n", i)
		PrintSummary(s)
		fmt.Println()
	}
}

// PrintComparison reports the serial and parallel runs of one scenario side
// by side.
func PrintComparison(serial, parallel sim.Summary) {
	fmt.Printf("=== Mode comparison ===\n")
	fmt.Printf("%-22s %10s %10s\n", "", "serial", "parallel")
	fmt.Printf("%-22s %10d %10d\n", "completed scans", serial.Completed, parallel.Completed)
	fmt.Printf("%-22s %9.1f%% %9.1f%%\n", "magnet busy", 100*serial.Aggregate.BusyFraction, 100*parallel.Aggregate.BusyFraction)
	fmt.Printf("%-22s %9.1f%% %9.1f%%\n", "magnet occupied", 100*serial.Aggregate.OccupiedFraction, 100*parallel.Aggregate.OccupiedFraction)
	fmt.Printf("%-22s %9.1f%% %9.1f%%\n", "magnet efficiency", 100*serial.Aggregate.Efficiency, 100*parallel.Aggregate.Efficiency)
	fmt.Printf("%-22s %10.1f %10.1f\n", "mean wait (min)", serial.WaitMean, parallel.WaitMean)
	fmt.Printf("%-22s %10.1f %10.1f\n", "p95 wait (min)", serial.WaitP95, parallel.WaitP95)
}

// WriteTrace writes the re-based event trace to a YAML file.
func WriteTrace(path string, records []feed.Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
