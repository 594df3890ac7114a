// Command apiserver runs the HyperBlend REST API and graph browser. It is
// equivalent to "hyperblend serve".
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

	args := append([]string{"serve"}, os.Args[1:]...)
	if err := cli.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
