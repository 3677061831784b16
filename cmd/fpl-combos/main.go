package main

import (
	"os"

	"github.com/KasraH/fpl-combos/cmd/fpl-combos/commands"
)

// Set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are already printed by the printer package.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
