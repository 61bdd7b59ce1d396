package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/cgrep/cgrep/internal/watcher"
)

// quietPeriod is how long the watcher's own debouncer waits for a burst of
// filesystem events to settle before handing the batch to Watch (spec §4.8).
const quietPeriod = 2 * time.Second

// minReindexInterval bounds how often consecutive reindex passes may run,
// even under continuous file churn (spec §4.8).
const minReindexInterval = 5 * time.Second

// Watch runs opts once, then reindexes again whenever the filesystem
// settles after a change, never more often than minReindexInterval. It
// blocks until ctx is cancelled. onResult, if non-nil, is called after every
// pass (including the initial one).
func (p *Pipeline) Watch(ctx context.Context, opts Options, onResult func(Result, error)) error {
	result, err := p.Run(ctx, opts)
	if onResult != nil {
		onResult(result, err)
	} else if err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = quietPeriod
	}
	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow: debounce,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, opts.Root) }()
	select {
	case err := <-startErr:
		if err != nil {
			return err
		}
	case <-time.After(100 * time.Millisecond):
		// Start is long-running (it loops until ctx is cancelled); give it a
		// moment to fail fast on setup errors, otherwise proceed to the
		// event loop below.
	}

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			if !relevantBatch(batch) {
				continue
			}
			if wait := minReindexInterval - time.Since(lastRun); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil
				}
			}
			lastRun = time.Now()
			result, runErr := p.Run(ctx, opts)
			if runErr != nil {
				slog.Warn("watch reindex failed", slog.String("error", runErr.Error()))
			}
			if onResult != nil {
				onResult(result, runErr)
			}
		case werr, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watcher error", slog.String("error", werr.Error()))
		}
	}
}

// relevantBatch reports whether a coalesced event batch contains anything
// worth triggering a reindex for (gitignore/config changes always do; plain
// file events always do; an empty batch never does).
func relevantBatch(batch []watcher.FileEvent) bool {
	return len(batch) > 0
}
