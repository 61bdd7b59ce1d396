// Package cmd wires cgrep's cobra command surface onto the engine
// packages: Filesystem Walker, Inverted Index, Embedding Store/Provider,
// Retrieval Engine, Result Cache, Context Packer, Agent Protocol and the
// structural query surface. One command per file, PersistentPreRunE
// handling cross-cutting setup (logging, profiling). Search runs
// in-process against the on-disk index rather than against a daemon.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/cgrep/cgrep/internal/agent"
	"github.com/cgrep/cgrep/internal/cache"
	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/contextpack"
	"github.com/cgrep/cgrep/internal/embed"
	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/retrieval"
	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/store"
	"github.com/cgrep/cgrep/internal/store/embedstore"
	"github.com/cgrep/cgrep/internal/symbol"
	"github.com/cgrep/cgrep/internal/telemetry"
)

// app bundles every engine collaborator a subcommand might need, opened
// once per invocation against the resolved project root.
type app struct {
	Root       string
	IndexDir   string
	Cfg        config.Config
	Walker     *scan.Walker
	Extractor  *symbol.Extractor
	Index      store.Index
	EmbedStore *embedstore.Store // nil when embeddings are disabled
	Embeddings embed.Provider    // nil when embeddings are disabled
	Engine     *retrieval.Engine
	Cache      *cache.Cache
	Metrics    *telemetry.QueryMetrics // nil when the query-telemetry store couldn't be opened
}

// openApp resolves the project root (walking up from path to a .git
// directory or .cgreprc.toml, per FindProjectRoot) and opens the BM25
// index, creating an empty one if none exists. When withEmbeddings is true
// and embeddings are not off in config, it also opens the embedding store
// (created if absent) and provider; if either fails, both are left nil.
func openApp(path string, withEmbeddings bool) (*app, func(), error) {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := config.Load()

	indexDir := filepath.Join(root, scan.IndexDirName, "index")
	bleveDir := filepath.Join(indexDir, "bm25")

	walker, err := scan.New()
	if err != nil {
		return nil, nil, err
	}

	idx, err := store.New(bleveDir, store.DefaultConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open index (run `cgrep index` first): %w", err)
	}

	a := &app{
		Root:      root,
		IndexDir:  indexDir,
		Cfg:       cfg,
		Walker:    walker,
		Extractor: symbol.NewExtractor(),
		Index:     idx,
	}

	closeFn := func() {
		_ = idx.Close()
		if a.EmbedStore != nil {
			_ = a.EmbedStore.Close()
		}
		if a.Metrics != nil {
			_ = a.Metrics.Close()
		}
	}

	if withEmbeddings && cfg.Embeddings.EnabledOrDefault() != config.EmbeddingOff {
		esPath := filepath.Join(root, scan.IndexDirName, "embeddings.sqlite")
		if es, esErr := embedstore.Open(esPath); esErr == nil {
			provider, provErr := embed.New(cfg.Embeddings)
			if provErr == nil {
				a.EmbedStore = es
				a.Embeddings = provider
			} else {
				_ = es.Close()
			}
		}
	}

	metricsPath := filepath.Join(root, scan.IndexDirName, "telemetry.sqlite")
	if metricsStore, metricsErr := telemetry.OpenSQLiteMetricsStore(metricsPath); metricsErr == nil {
		a.Metrics = telemetry.NewQueryMetricsWithConfig(metricsStore, telemetry.QueryMetricsConfig{FlushInterval: 0})
	}

	a.Engine = &retrieval.Engine{
		Index:      a.Index,
		EmbedStore: a.EmbedStore,
		Embeddings: a.Embeddings,
		Root:       a.Root,
		Metrics:    a.Metrics,
	}

	if cfg.Cache.EnabledOrDefault() {
		if c, cacheErr := cache.New(root, 0); cacheErr == nil {
			a.Cache = c
		}
	}

	return a, closeFn, nil
}

// resolveMode parses a --mode flag value, falling back to def.
func resolveMode(raw string, def retrieval.Mode) (retrieval.Mode, error) {
	if raw == "" {
		return def, nil
	}
	mode, ok := retrieval.ParseMode(raw)
	if !ok {
		return "", errs.Wrap(errs.ErrQuery, "invalid --mode "+raw, fmt.Errorf("must be one of keyword, semantic, hybrid"))
	}
	return mode, nil
}

// contextPackerFor builds a Context Packer for the given context-line
// width, defaulting to contextpack.DefaultContextLines.
func contextPackerFor(root string, contextLines int) *contextpack.Builder {
	return contextpack.New(root, contextLines)
}
