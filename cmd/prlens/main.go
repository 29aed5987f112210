package main

import (
	"os"

	"github.com/sprite-ai/prlens/internal/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
