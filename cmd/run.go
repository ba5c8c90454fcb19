package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/procsim/procsim/internal/store"
	"github.com/procsim/procsim/internal/telemetry"
	"github.com/procsim/procsim/sim"
	"github.com/procsim/procsim/sim/stats"
	"github.com/procsim/procsim/sim/trace"
)

// runOptions carries the `run` flags.
type runOptions struct {
	ConfigPath   string
	Seed         int64
	Replications int
	Workers      int
	MaxEvents    int
	TraceLevel   string
	ResultsDB    string
	OutputPath   string
	OTelEndpoint string
}

var runOpts runOptions

// runCmd executes the simulation described by a model file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model once, or as a batch of replications",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOpts
		if !cmd.Flags().Changed("results-db") {
			opts.ResultsDB = envOr(envResultsDB, opts.ResultsDB)
		}
		if !cmd.Flags().Changed("otel-endpoint") {
			opts.OTelEndpoint = envOr(envOTelEndpoint, opts.OTelEndpoint)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:    opts.OTelEndpoint,
			ServiceName: "procsim",
			Version:     version,
			Insecure:    true,
		})
		if err != nil {
			logrus.Fatalf("Telemetry setup failed: %v", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logrus.Warnf("Telemetry shutdown: %v", err)
			}
		}()

		if err := executeRun(ctx, opts, os.Stdout, os.Stderr); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// executeRun loads the model, runs it and writes the JSON result to stdout
// (or opts.OutputPath). A trace summary, when requested, goes to diag.
func executeRun(ctx context.Context, opts runOptions, stdout, diag io.Writer) error {
	if opts.ConfigPath == "" {
		return fmt.Errorf("--config is required")
	}
	if opts.Replications < 1 {
		return fmt.Errorf("--replications must be >= 1, got %d", opts.Replications)
	}
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, events", opts.TraceLevel)
	}
	model, err := loadModel(opts.ConfigPath)
	if err != nil {
		return err
	}

	var result any
	if opts.Replications == 1 && opts.ResultsDB == "" {
		rs, err := runSingle(ctx, model, opts, diag)
		if err != nil {
			return err
		}
		result = rs
	} else {
		agg, err := runBatch(ctx, model, opts)
		if err != nil {
			return err
		}
		result = agg
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		logrus.Infof("Results written to %s", opts.OutputPath)
		return nil
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

func loadModel(path string) (*sim.Model, error) {
	cfg, err := sim.LoadModelConfig(path)
	if err != nil {
		return nil, err
	}
	model, err := cfg.Compile()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

func runSingle(ctx context.Context, model *sim.Model, opts runOptions, diag io.Writer) (*sim.RunStats, error) {
	s, err := sim.NewSimulator(model, opts.Seed)
	if err != nil {
		return nil, err
	}
	if opts.TraceLevel != "" {
		s.EnableTrace(trace.TraceConfig{Level: trace.TraceLevel(opts.TraceLevel)})
	}
	logrus.Infof("Starting simulation: seed %d, horizon %g, %d resources, %d steps",
		opts.Seed, model.Horizon, len(model.Resources), len(model.Steps))
	rs, err := s.RunContext(ctx, sim.RunOptions{MaxEvents: opts.MaxEvents})
	if err != nil {
		return nil, err
	}
	if s.Trace != nil {
		printTraceSummary(diag, trace.Summarize(s.Trace))
	}
	return rs, nil
}

func runBatch(ctx context.Context, model *sim.Model, opts runOptions) (*stats.AggregateStats, error) {
	if opts.TraceLevel != "" && opts.TraceLevel != string(trace.TraceLevelNone) {
		logrus.Warnf("--trace-level is ignored for replication batches")
	}
	agg, err := stats.RunReplications(ctx, model, opts.Replications, opts.Seed, stats.Options{
		Workers:   opts.Workers,
		MaxEvents: opts.MaxEvents,
	})
	if err != nil {
		return nil, err
	}
	if opts.ResultsDB != "" {
		db, err := store.Open(ctx, opts.ResultsDB)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		if err := db.SaveBatch(ctx, store.BatchRecord{Model: opts.ConfigPath, Stats: agg}); err != nil {
			return nil, err
		}
		logrus.Infof("Batch %s saved to %s", agg.BatchID, opts.ResultsDB)
	}
	return agg, nil
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Seize Attempts       : %d\n", s.TotalAttempts)
	fmt.Fprintf(w, "Seized / Queued      : %d / %d\n", s.SeizedCount, s.QueuedCount)
	fmt.Fprintf(w, "Wake-ups (lost)      : %d (%d)\n", s.WakeUps, s.LostWakeUps)
	fmt.Fprintf(w, "Max Queue Length     : %d\n", s.MaxQueueLength)
	fmt.Fprintf(w, "Departures           : %d\n", s.Departures)
	for step, n := range s.TargetDistribution {
		fmt.Fprintf(w, "  routed to %-10s: %d\n", step, n)
	}
}

func init() {
	runCmd.Flags().StringVar(&runOpts.ConfigPath, "config", "", "Path to the YAML model file")
	runCmd.Flags().Int64Var(&runOpts.Seed, "seed", 42, "Seed for the run (replication i uses seed+i)")
	runCmd.Flags().IntVar(&runOpts.Replications, "replications", 1, "Number of independent replications")
	runCmd.Flags().IntVar(&runOpts.Workers, "workers", 0, "Concurrent replications (0 = GOMAXPROCS)")
	runCmd.Flags().IntVar(&runOpts.MaxEvents, "max-events", 0, "Per-run event budget (0 = unlimited)")
	runCmd.Flags().StringVar(&runOpts.TraceLevel, "trace-level", "none", "Decision trace level (none, events); single runs only")
	runCmd.Flags().StringVar(&runOpts.ResultsDB, "results-db", "", "SQLite file to store batch results in (env "+envResultsDB+")")
	runCmd.Flags().StringVar(&runOpts.OutputPath, "output", "", "Write JSON results to this file instead of stdout")
	runCmd.Flags().StringVar(&runOpts.OTelEndpoint, "otel-endpoint", "", "OTLP/HTTP collector host:port (env "+envOTelEndpoint+")")

	rootCmd.AddCommand(runCmd)
}
