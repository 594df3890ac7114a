// Command hyperblend is the HyperBlend command-line client and server launcher.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/turtacn/HyperBlend/internal/interfaces/cli"
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
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
