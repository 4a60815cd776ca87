// Command metaboscope cleans, filters and summarizes genome-scale metabolic
// models and serves the session API.
package main

import (
	"os"

	"github.com/turtacn/MetaboScope/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
