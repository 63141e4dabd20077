package main

import (
	"os"

	"github.com/signalnine/ledgermark/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
