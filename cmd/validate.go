package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/ledgermark/internal/config"
	"github.com/signalnine/ledgermark/internal/gateway"
	"github.com/signalnine/ledgermark/internal/invoke"
)

var flagProbe bool

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the benchmark config and optionally probe the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Gateway: %s (chain %s)\n", cfg.Gateway.URL, cfg.Gateway.ChainID)
			fmt.Printf("Contracts: %d, ops: %d\n", len(cfg.Contracts), len(cfg.Workload.Ops))
			fmt.Printf("Workload: %d round(s) × %d invocation(s), %d worker(s)\n",
				cfg.Workload.Rounds, cfg.Workload.Operations, cfg.Workload.Workers)
			fmt.Printf("Polling: initial %dms, interval %dms, max polls %d\n",
				cfg.Polling.InitialDelayMS, cfg.Polling.IntervalMS, cfg.Polling.MaxPolls)

			if !flagProbe {
				return nil
			}

			// A status check for a throwaway reference only proves the
			// gateway answers; any well-formed reply counts, including an
			// error payload for the unknown transaction.
			client := gateway.NewClient(cfg.Gateway.URL,
				gateway.AuthHeaders(cfg.Gateway.FromUser, cfg.Gateway.FromApplication))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := client.CheckStatus(ctx, invoke.NewReferenceID()); err != nil {
				var terr *gateway.TransportError
				if errors.As(err, &terr) {
					if terr.Parse {
						return fmt.Errorf("gateway answered with a non-JSON reply: %w", err)
					}
					return fmt.Errorf("gateway unreachable: %w", err)
				}
				return err
			}
			fmt.Println("Gateway reachable.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagProbe, "probe", false, "check gateway reachability with a status call")
	return cmd
}
