// Package main provides the entry point for the cgrep CLI.
package main

import (
	"os"

	"github.com/cgrep/cgrep/cmd/cgrep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
