package main

import (
	"os"

	"github.com/stewardhq/steward/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
