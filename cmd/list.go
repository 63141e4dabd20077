package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/ledgermark/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured contracts and workload operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Println("Contracts:")
			for _, c := range cfg.Contracts {
				fmt.Printf("  - %s (id: %s, path: %s)\n", c.Name, c.ID, c.Path)
			}
			fmt.Println("\nOperations:")
			for _, op := range cfg.Workload.Ops {
				mode := "write"
				if op.ReadOnly {
					mode = "read"
				}
				fmt.Printf("  - %s.%s [%s, weight %d]\n", op.Contract, op.Method, mode, op.Weight)
			}
			return nil
		},
	}
}
