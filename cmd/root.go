package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/collapse-sim/collapse-sim/sim"
	"github.com/collapse-sim/collapse-sim/sim/archive"
	"github.com/collapse-sim/collapse-sim/sim/ledger"
)

var (
	// CLI flags for the run command
	configPath   string // YAML config file (optional, defaults apply)
	scenarioPath string // YAML scenario of scripted event injections
	maxTicks     int64  // overrides simulation.max_ticks when > 0
	seed         int64  // overrides seed when >= 0
	logLevel     string // log verbosity level
	exportPath   string // where to write the artifacts JSON
	archivePath  string // SQLite archive database (optional)
	runName      string // run name used in the archive
	noDynamics   bool   // disable the per-tick dynamics providers

	// CLI flags for the verify command
	verifyArchive string // SQLite archive database to read
	verifyRunID   int64  // archived run whose ledger to verify
)

// envOverrides are applied after flags, highest precedence.
// Example: COLLAPSESIM_SEED=7 COLLAPSESIM_MAX_TICKS=200 collapse-sim run
type envOverrides struct {
	Seed     *int64  `env:"SEED"`
	MaxTicks *int64  `env:"MAX_TICKS"`
	LogLevel *string `env:"LOG_LEVEL"`
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "collapse-sim",
	Short: "Deterministic irreversibility-constrained societal collapse simulator",
}

// buildConfig assembles the effective config: defaults, then the config
// file, then flags, then environment overrides.
func buildConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if maxTicks > 0 {
		cfg.Simulation.MaxTicks = maxTicks
	}
	if seed >= 0 {
		cfg.Seed = seed
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if noDynamics {
		cfg.Features.Dynamics = false
	}

	var ov envOverrides
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: "COLLAPSESIM_"}); err != nil {
		return cfg, fmt.Errorf("parse environment overrides: %w", err)
	}
	if ov.Seed != nil {
		cfg.Seed = *ov.Seed
	}
	if ov.MaxTicks != nil {
		cfg.Simulation.MaxTicks = *ov.MaxTicks
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	return cfg, nil
}

// runCmd executes a simulation to its terminal state and exports artifacts.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a collapse simulation to its terminal state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildConfig()
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", cfg.LogLevel)
		}
		logrus.SetLevel(level)

		var scenario *Scenario
		if scenarioPath != "" {
			scenario, err = LoadScenario(scenarioPath)
			if err != nil {
				logrus.Fatalf("Invalid scenario: %v", err)
			}
			logrus.Infof("Loaded scenario %q with %d events", scenario.Name, len(scenario.Events))
		}

		engine := sim.NewEngine(cfg)
		if err := engine.Init(); err != nil {
			logrus.Fatalf("Engine initialization failed: %v", err)
		}

		for engine.Running() {
			if scenario != nil {
				for _, se := range scenario.EventsAt(engine.State().TickCount) {
					ev, err := se.Build()
					if err != nil {
						logrus.Fatalf("Scenario event at tick %d: %v", se.Tick, err)
					}
					if err := engine.InjectEvent(ev); err != nil {
						logrus.Fatalf("Event injection failed: %v", err)
					}
				}
			}
			if _, err := engine.Tick(); err != nil {
				logrus.Fatalf("Tick failed: %v", err)
			}
		}
		logrus.Infof("Simulation complete: outcome=%s", engine.FinalOutcome())

		artifacts, err := engine.ExportArtifacts()
		if err != nil {
			logrus.Fatalf("Artifact export failed: %v", err)
		}
		blob, err := json.MarshalIndent(artifacts, "", "  ")
		if err != nil {
			logrus.Fatalf("Artifact serialization failed: %v", err)
		}

		if exportPath != "" {
			if err := os.WriteFile(exportPath, blob, 0o644); err != nil {
				logrus.Fatalf("Could not write artifacts to %s: %v", exportPath, err)
			}
			logrus.Infof("Artifacts written to %s", exportPath)
		} else {
			fmt.Println(string(blob))
		}

		if archivePath != "" {
			store, err := archive.Open(archivePath)
			if err != nil {
				logrus.Fatalf("Could not open archive: %v", err)
			}
			defer store.Close()
			name := runName
			if name == "" {
				name = cfg.SimulationName
			}
			runID, err := store.SaveRun(name, string(engine.FinalOutcome()), blob)
			if err != nil {
				logrus.Fatalf("Could not archive run: %v", err)
			}
			if err := store.SaveLedger(runID, engine.Timeline().Entries()); err != nil {
				logrus.Fatalf("Could not archive ledger: %v", err)
			}
			logrus.Infof("Run archived as id %d in %s", runID, archivePath)
		}
	},
}

// verifyCmd re-verifies the hash chain of an archived ledger.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash-chain integrity of an archived run ledger",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := archive.Open(verifyArchive)
		if err != nil {
			logrus.Fatalf("Could not open archive: %v", err)
		}
		defer store.Close()

		entries, err := store.LoadLedger(verifyRunID)
		if err != nil {
			logrus.Fatalf("Could not load ledger: %v", err)
		}
		timeline := ledger.FromEntries(entries)
		if err := timeline.VerifyChainIntegrity(); err != nil {
			logrus.Fatalf("Ledger verification FAILED: %v", err)
		}
		fmt.Printf("ledger verified: %d entries, chain head %s\n", timeline.Len(), timeline.ChainHead())
	},
}

// runsCmd lists archived runs.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := archive.Open(verifyArchive)
		if err != nil {
			logrus.Fatalf("Could not open archive: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			logrus.Fatalf("Could not list runs: %v", err)
		}
		for _, r := range runs {
			fmt.Printf("%4d  %-24s  %-12s  %s\n", r.ID, r.Name, r.Outcome, r.CreatedAt)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file (defaults apply when omitted)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario of scripted event injections")
	runCmd.Flags().Int64Var(&maxTicks, "max-ticks", 0, "Override simulation.max_ticks (0 keeps config value)")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "Override the deterministic seed (-1 keeps config value)")
	runCmd.Flags().StringVar(&logLevel, "log", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&exportPath, "export", "", "Write artifacts JSON to this file instead of stdout")
	runCmd.Flags().StringVar(&archivePath, "archive", "", "Archive the run into this SQLite database")
	runCmd.Flags().StringVar(&runName, "run-name", "", "Run name used in the archive")
	runCmd.Flags().BoolVar(&noDynamics, "no-dynamics", false, "Disable the per-tick dynamics providers")

	verifyCmd.Flags().StringVar(&verifyArchive, "archive", "collapse-sim.db", "SQLite archive database")
	verifyCmd.Flags().Int64Var(&verifyRunID, "run-id", 1, "Archived run ID to verify")

	runsCmd.Flags().StringVar(&verifyArchive, "archive", "collapse-sim.db", "SQLite archive database")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runsCmd)
}
