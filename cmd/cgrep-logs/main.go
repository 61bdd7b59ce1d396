// Package main provides cgrep-logs, a viewer/tail for cgrep's debug log
// file (~/.cgrep/logs/cgrep.log, written when CGREP_LOG or --debug is set).
// Trimmed to a single log source since cgrep has no companion server
// process to merge logs from.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		follow  bool
		lines   int
		level   string
		filter  string
		noColor bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "cgrep-logs",
		Short: "View cgrep's debug log",
		Long: `View and tail cgrep's debug log file.

By default, shows the last 50 lines. Use -f to follow new entries in
real-time (like 'tail -f').

Examples:
  cgrep-logs                    # Show last 50 lines
  cgrep-logs -n 100             # Show last 100 lines
  cgrep-logs -f                 # Follow logs in real-time
  cgrep-logs --level error      # Show only error logs
  cgrep-logs --filter "search"  # Filter by pattern`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), logsOptions{
				follow:  follow,
				lines:   lines,
				level:   level,
				filter:  filter,
				noColor: noColor,
				logFile: logFile,
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output (like tail -f)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "filter by keyword/pattern (regex)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&logFile, "file", "", "path to log file (overrides the default location)")

	return cmd
}

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func runLogs(ctx context.Context, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor,
	}, os.Stdout)

	fmt.Fprintf(os.Stderr, "Log file: %s\n", path)
	if opts.follow {
		fmt.Fprintln(os.Stderr, "Following... (Ctrl+C to stop)")
	}
	fmt.Fprintln(os.Stderr, "---")

	if opts.follow {
		return runFollow(ctx, viewer, path)
	}

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

func runFollow(ctx context.Context, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			fmt.Println(viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\n---")
			fmt.Fprintln(os.Stderr, "Stopped.")
			return nil
		}
	}
}
