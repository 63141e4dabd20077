package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgermark",
		Short: "Benchmark harness for smart-contract ledger gateways",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "ledgermark.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}
