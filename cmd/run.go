package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/ledgermark/internal/config"
	"github.com/signalnine/ledgermark/internal/gateway"
	"github.com/signalnine/ledgermark/internal/invoke"
	"github.com/signalnine/ledgermark/internal/report"
	"github.com/signalnine/ledgermark/internal/result"
	"github.com/signalnine/ledgermark/internal/runner"
	"github.com/signalnine/ledgermark/internal/workload"
)

var (
	flagRounds  int
	flagWorkers int
	flagRate    float64
	flagSeed    int64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a benchmark run",
		RunE:  runBenchmark,
	}
	cmd.Flags().IntVar(&flagRounds, "rounds", 0, "override round count")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "override worker count per round")
	cmd.Flags().Float64Var(&flagRate, "rate", 0, "override submissions per second (0 = config value)")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "workload seed (0 = time-based)")
	return cmd
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagRounds > 0 {
		cfg.Workload.Rounds = flagRounds
	}
	if flagWorkers > 0 {
		cfg.Workload.Workers = flagWorkers
	}
	if flagRate > 0 {
		cfg.Workload.RatePerSec = flagRate
	}
	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	store, err := result.OpenStore(result.DBPath(runDir))
	if err != nil {
		return err
	}
	defer store.Close()

	bindings := contractBindings(cfg)
	client := gateway.NewClient(cfg.Gateway.URL,
		gateway.AuthHeaders(cfg.Gateway.FromUser, cfg.Gateway.FromApplication))
	engine := invoke.NewEngine(client, bindings, pollPolicy(cfg), slog.Default())

	gen, err := workload.NewGenerator(cfg.Workload.Ops, seed)
	if err != nil {
		return err
	}

	ctx := context.Background()

	for round := 1; round <= cfg.Workload.Rounds; round++ {
		fmt.Printf("Round %d/%d: %d invocations, %d workers...\n",
			round, cfg.Workload.Rounds, cfg.Workload.Operations, cfg.Workload.Workers)

		if err := writeRoundArgs(runDir, round, workload.NewRoundArgs(bindings)); err != nil {
			return err
		}

		descriptors := gen.Round(round, cfg.Workload.Operations)
		records := runner.ExecuteRound(ctx, engine, descriptors, runner.RoundOpts{
			Round:      round,
			Workers:    cfg.Workload.Workers,
			RatePerSec: cfg.Workload.RatePerSec,
		})

		succeeded := 0
		for _, rec := range records {
			if err := store.Add(rec); err != nil {
				return err
			}
			if rec.Succeeded {
				succeeded++
			}
		}
		fmt.Printf("  %d/%d succeeded\n", succeeded, len(records))
	}

	records, err := store.Records()
	if err != nil {
		return err
	}
	fmt.Println("\n--- Results ---")
	return report.Generate(records, "table", os.Stdout)
}

// writeRoundArgs exposes the per-round contract table to downstream workers.
func writeRoundArgs(runDir string, round int, args *workload.RoundArgs) error {
	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling round args: %w", err)
	}
	path := filepath.Join(runDir, fmt.Sprintf("round-%d-args.json", round))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing round args: %w", err)
	}
	return nil
}

func contractBindings(cfg *config.Config) map[string]invoke.Binding {
	bindings := make(map[string]invoke.Binding, len(cfg.Contracts))
	for _, c := range cfg.Contracts {
		bindings[c.Name] = invoke.Binding{ID: c.ID, Path: c.Path}
	}
	return bindings
}

func pollPolicy(cfg *config.Config) invoke.PollPolicy {
	return invoke.PollPolicy{
		InitialDelay: time.Duration(cfg.Polling.InitialDelayMS) * time.Millisecond,
		Interval:     time.Duration(cfg.Polling.IntervalMS) * time.Millisecond,
		MaxPolls:     cfg.Polling.MaxPolls,
	}
}
