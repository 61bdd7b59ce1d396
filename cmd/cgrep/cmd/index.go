package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/embed"
	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/index"
	"github.com/cgrep/cgrep/internal/output"
	"github.com/cgrep/cgrep/internal/preflight"
	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/store"
	"github.com/cgrep/cgrep/internal/store/embedstore"
	"github.com/cgrep/cgrep/internal/symbol"
	"github.com/cgrep/cgrep/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var path string
	var force bool
	var embeddingsFlag string
	var embeddingsForce bool
	var skipPreflight bool
	var resetSchema bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or incrementally update the on-disk index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), path, force, embeddingsFlag, embeddingsForce, skipPreflight, resetSchema)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", ".", "root to index")
	f.BoolVar(&force, "force", false, "reindex every file regardless of modification time")
	f.StringVar(&embeddingsFlag, "embeddings", "", "off, precompute, or on (default: config embeddings.enabled)")
	f.BoolVar(&embeddingsForce, "embeddings-force", false, "re-embed every symbol regardless of content hash")
	f.BoolVar(&skipPreflight, "skip-preflight", false, "skip disk/memory/permission checks before indexing")
	f.BoolVar(&resetSchema, "reset-schema", false, "drop and recreate the embedding store schema before indexing (recovers from a corrupted or stale on-disk schema)")

	return cmd
}

// buildPipeline opens (creating if absent) the BM25 index and, unless
// embeddings are off, the embedding store and provider, then wires an
// index.Pipeline over them. Returns a cleanup func closing everything it
// opened.
func buildPipeline(ctx context.Context, root string, cfg config.Config, embeddingsMode config.EmbeddingEnabled, resetSchema bool) (*index.Pipeline, config.EmbeddingEnabled, func(), error) {
	indexDir := filepath.Join(root, scan.IndexDirName, "index")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, "", nil, errs.Wrap(errs.ErrIO, "create index dir", err)
	}
	bleveDir := filepath.Join(indexDir, "bm25")

	walker, err := scan.New()
	if err != nil {
		return nil, "", nil, err
	}

	idx, err := store.New(bleveDir, store.DefaultConfig())
	if err != nil {
		return nil, "", nil, err
	}

	deps := index.Dependencies{
		Walker:    walker,
		Extractor: symbol.NewExtractor(),
		Index:     idx,
	}

	closers := []func(){func() { _ = idx.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if embeddingsMode == "" {
		embeddingsMode = cfg.Embeddings.EnabledOrDefault()
	}
	if embeddingsMode != config.EmbeddingOff {
		esPath := filepath.Join(root, scan.IndexDirName, "embeddings.sqlite")
		es, esErr := embedstore.Open(esPath)
		if esErr != nil {
			closeAll()
			return nil, "", nil, esErr
		}
		closers = append(closers, func() { _ = es.Close() })

		if resetSchema {
			if err := es.ResetSchema(ctx); err != nil {
				closeAll()
				return nil, "", nil, err
			}
		}

		provider, provErr := embed.New(cfg.Embeddings)
		if provErr != nil {
			closeAll()
			return nil, "", nil, errs.Wrap(errs.ErrProvider, "create embedding provider", provErr)
		}
		deps.Embeddings = provider
		deps.EmbedStore = es
	}

	return index.New(deps), embeddingsMode, closeAll, nil
}

func runIndex(ctx context.Context, path string, force bool, embeddingsFlag string, embeddingsForce bool, skipPreflight bool, resetSchema bool) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return err
	}
	cfg := config.Load()

	w := output.NewAuto(os.Stdout)

	if !skipPreflight {
		checker := preflight.New(preflight.WithOutput(os.Stdout))
		results := checker.RunAll(ctx, root)
		if checker.HasCriticalFailures(results) {
			checker.PrintResults(results)
			return errs.Wrap(errs.ErrIO, "preflight check", fmt.Errorf("critical check failed; rerun with --skip-preflight to bypass"))
		}
	}

	mode, err := parseEmbeddingsFlag(embeddingsFlag)
	if err != nil {
		return err
	}

	pipeline, resolvedMode, closeAll, err := buildPipeline(ctx, root, cfg, mode, resetSchema)
	if err != nil {
		return err
	}
	defer closeAll()

	w.Statusf("📂", "Indexing %s", root)

	renderer := ui.NewRenderer(ui.NewConfig(os.Stdout, ui.WithProjectDir(root), ui.WithNoColor(ui.DetectNoColor())))
	if err := renderer.Start(ctx); err != nil {
		renderer = ui.NewPlainRenderer(ui.NewConfig(os.Stdout, ui.WithProjectDir(root)))
	}

	opts := indexOptionsFor(root, cfg, force, resolvedMode, embeddingsForce)
	opts.OnProgress = func(current, total int, path string) {
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: current, Total: total, CurrentFile: path})
	}

	start := time.Now()
	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		_ = renderer.Stop()
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Files:    result.FilesIndexed,
		Duration: time.Since(start),
		Errors:   result.Errors,
	})
	_ = renderer.Stop()

	w.Successf("Indexed %d files (%d skipped, %d deleted, %d errors)",
		result.FilesIndexed, result.FilesSkipped, result.FilesDeleted, result.Errors)
	return nil
}

func indexOptionsFor(root string, cfg config.Config, force bool, embeddingsMode config.EmbeddingEnabled, embeddingsForce bool) index.Options {
	return index.Options{
		Root:            root,
		IndexDir:        filepath.Join(root, scan.IndexDirName, "index"),
		ExcludePatterns: append([]string{}, cfg.Index.ExcludePaths...),
		MaxFileBytes:    cfg.Index.MaxFileSizeOrDefault(),
		ForceEmbeddings: force || embeddingsForce,
		EmbeddingsMode:  embeddingsMode,
	}
}

func parseEmbeddingsFlag(raw string) (config.EmbeddingEnabled, error) {
	switch raw {
	case "":
		return "", nil
	case "off":
		return config.EmbeddingOff, nil
	case "precompute", "on":
		return config.EmbeddingOn, nil
	default:
		return "", errs.Wrap(errs.ErrQuery, "invalid --embeddings "+raw, fmt.Errorf("must be one of off, precompute, on"))
	}
}
