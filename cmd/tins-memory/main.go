package main

import (
	"os"

	"github.com/ScuffedEpoch/TINS-MCP/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
