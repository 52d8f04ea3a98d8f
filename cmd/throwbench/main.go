package main

import (
	"os"

	"github.com/wesleyorama2/throwbench/internal/cli"
)

// Main runs the root command and returns the process exit code.
func Main() int {
	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
