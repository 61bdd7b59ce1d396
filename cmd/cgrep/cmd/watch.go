package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/index"
	"github.com/cgrep/cgrep/internal/output"
)

func newWatchCmd() *cobra.Command {
	var path string
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index once, then reindex whenever the filesystem settles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), path, debounceMs)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "root to watch")
	f.IntVar(&debounceMs, "debounce", 2000, "milliseconds to wait for a burst of changes to settle")

	return cmd
}

func runWatch(ctx context.Context, path string, debounceMs int) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return err
	}
	cfg := config.Load()

	pipeline, resolvedMode, closeAll, err := buildPipeline(ctx, root, cfg, "", false)
	if err != nil {
		return err
	}
	defer closeAll()

	opts := indexOptionsFor(root, cfg, false, resolvedMode, false)
	opts.Debounce = time.Duration(debounceMs) * time.Millisecond

	w := output.NewAuto(os.Stdout)
	w.Statusf("👀", "Watching %s (Ctrl-C to stop)", root)

	return pipeline.Watch(ctx, opts, func(result index.Result, runErr error) {
		if runErr != nil {
			w.Error(runErr.Error())
			return
		}
		w.Successf("Indexed %d files (%d skipped, %d deleted, %d errors)",
			result.FilesIndexed, result.FilesSkipped, result.FilesDeleted, result.Errors)
	})
}
