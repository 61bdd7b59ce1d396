// Package main provides cg, a shorthand front-end for cgrep: `cg <token>
// [...]` runs `cgrep search <token> [...]` whenever the first token is not
// a known subcommand, per spec §6. Grounded on
// original_source/src/bin/cg.rs's re-exec dispatcher, trimmed to the
// subcommands this module actually implements.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func main() {
	args := os.Args[1:]

	cgrepPath := "cgrep"
	if exe, err := os.Executable(); err == nil {
		cgrepPath = filepath.Join(filepath.Dir(exe), "cgrep")
	}

	var cmdArgs []string
	switch {
	case len(args) == 0:
		cmdArgs = []string{"--help"}
	case !strings.HasPrefix(args[0], "-") && !isSubcommand(args[0]):
		cmdArgs = append([]string{"search"}, args...)
	default:
		cmdArgs = args
	}

	cmd := exec.Command(cgrepPath, cmdArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error running cgrep: %v\n", err)
		os.Exit(1)
	}
}

// isSubcommand reports whether arg is a known cgrep subcommand or alias.
func isSubcommand(arg string) bool {
	switch strings.ToLower(arg) {
	case "search", "s", "symbols", "definition", "def", "callers",
		"references", "refs", "dependents", "deps", "index", "watch", "agent",
		"config", "help", "completion":
		return true
	default:
		return false
	}
}
