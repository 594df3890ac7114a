// Command worker consumes enrichment jobs from Kafka. It is equivalent to
// "hyperblend worker".
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/turtacn/HyperBlend/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	args := append([]string{"worker"}, os.Args[1:]...)
	if err := cli.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
