package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/mri-sim/mri-sim/sim"
)

var (
	// CLI flags for the department configuration
	seed          int64   // Seed for all stochastic draws
	shiftMinutes  float64 // Scheduled shift length (minutes)
	warmUpMinutes float64 // Warm-up window excluded from statistics
	logLevel      string  // Log verbosity level
	magnetCount   int     // Number of scanner bays
	mode          string  // Workflow mode (serial or parallel)
	gapFill       bool    // Enable idle-magnet gap filling
	replications  int     // Number of replications (seed, seed+1, ...)

	// CLI flags for scenario presets and trace output
	scenarioFile string // YAML file with named scenario presets
	scenarioName string // Preset to load from the scenario file
	traceFile    string // Write the re-based event trace to this file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mri-sim",
	Short: "Discrete-event simulator for MRI department operations",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the department simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := buildConfig(cmd)

		startTime := time.Now()
		summaries := make([]sim.Summary, 0, replications)
		for i := 0; i < replications; i++ {
			runCfg := cfg
			runCfg.Seed = cfg.Seed + int64(i)
			s, err := sim.NewSimulator(runCfg)
			if err != nil {
				logrus.Fatalf("invalid configuration: %v", err)
			}
			if err := s.Run(); err != nil {
				logrus.Fatalf("replication %d aborted, discarding its statistics: %v", i, err)
			}
			summaries = append(summaries, s.Collector.Summarize())
			if traceFile != "" && i == 0 {
				if err := WriteTrace(traceFile, s.Collector.Records()); err != nil {
					logrus.Fatalf("unable to write trace: %v", err)
				}
			}
		}

		if replications == 1 {
			PrintSummary(summaries[0])
		} else {
			PrintReplications(summaries)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// compareCmd runs the same scenario once per workflow mode so the serial and
// parallel prep policies can be judged side by side on identical draws.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare serial and parallel workflow modes on one scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := buildConfig(cmd)

		byMode := map[sim.WorkflowMode]sim.Summary{}
		for _, m := range []sim.WorkflowMode{sim.WorkflowSerial, sim.WorkflowParallel} {
			runCfg := cfg
			runCfg.Mode = m
			s, err := sim.NewSimulator(runCfg)
			if err != nil {
				logrus.Fatalf("invalid configuration: %v", err)
			}
			if err := s.Run(); err != nil {
				logrus.Fatalf("%s run aborted: %v", m, err)
			}
			byMode[m] = s.Collector.Summarize()
		}
		PrintComparison(byMode[sim.WorkflowSerial], byMode[sim.WorkflowParallel])
	},
}

// buildConfig layers the scenario preset (if any) over the defaults and the
// explicitly set CLI flags over both.
func buildConfig(cmd *cobra.Command) sim.Config {
	cfg := sim.DefaultConfig()
	if scenarioFile != "" {
		loaded, err := GetScenarioConfig(scenarioFile, scenarioName)
		if err != nil {
			logrus.Fatalf("unable to read scenario config: %v", err)
		}
		cfg = loaded
	}

	cfg.Seed = seed
	if cmd.Flags().Changed("shift") {
		cfg.ShiftMinutes = shiftMinutes
	}
	if cmd.Flags().Changed("warm-up") {
		cfg.WarmUpMinutes = warmUpMinutes
	}
	if cmd.Flags().Changed("magnets") {
		cfg.MagnetCount = magnetCount
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = sim.WorkflowMode(mode)
	}
	if cmd.Flags().Changed("gap-fill") {
		cfg.GapFill = gapFill
	}
	return cfg
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, compareCmd} {
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for all stochastic draws")
		c.Flags().Float64Var(&shiftMinutes, "shift", 720, "Scheduled shift length in minutes")
		c.Flags().Float64Var(&warmUpMinutes, "warm-up", 60, "Warm-up minutes excluded from statistics")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().IntVar(&magnetCount, "magnets", 2, "Number of scanner bays")
		c.Flags().StringVar(&scenarioFile, "scenarios", "", "YAML file with named scenario presets")
		c.Flags().StringVar(&scenarioName, "scenario", "", "Scenario preset to load")
		c.Flags().BoolVar(&gapFill, "gap-fill", true, "Pull no-IV patients forward when a magnet idles")
	}
	runCmd.Flags().StringVar(&mode, "mode", "parallel", "Workflow mode (serial or parallel)")
	runCmd.Flags().IntVar(&replications, "replications", 1, "Number of replications (seed, seed+1, ...)")
	runCmd.Flags().StringVar(&traceFile, "trace", "", "Write the first replication's event trace to this YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}
