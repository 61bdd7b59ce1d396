// Package index implements the Indexer Pipeline (IX): orchestrating
// FW → (SX, TC, EP) → (II, ES) with per-file modification-time and
// content-hash gating so unchanged files are skipped on incremental runs.
// Grounded on a coordinator/runner split (internal/index's
// original CoordinatorConfig/RunnerConfig fields), collapsed into a single
// Pipeline since the spec has no separate MCP-session/runner boundary.
package index

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/embed"
	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/hashutil"
	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/store"
	"github.com/cgrep/cgrep/internal/store/embedstore"
	"github.com/cgrep/cgrep/internal/symbol"
)

// Dependencies bundles the collaborators a Pipeline drives. Embeddings and
// EmbedStore are both nil when embeddings are disabled.
type Dependencies struct {
	Walker     *scan.Walker
	Extractor  *symbol.Extractor
	Index      store.Index
	Embeddings embed.Provider
	EmbedStore *embedstore.Store
	BatchSize  int // sub-batch size for the EP batching adapter; 0 = 32
}

// Options configures a single indexing pass.
type Options struct {
	Root            string
	IndexDir        string // holds metadata.json; typically Root/.cgrep/index
	ExcludePatterns []string
	MaxFileBytes    int64
	ForceEmbeddings bool
	EmbeddingsMode  config.EmbeddingEnabled
	Debounce        time.Duration // Watch-only: 0 uses quietPeriod

	// OnProgress, if set, is called as each walked file is received (before
	// it is indexed or skipped) with the 1-based count seen so far. The walk
	// streams over a channel, so the total is not known during the pass and
	// is always passed as 0.
	OnProgress func(current, total int, path string)
}

// Result summarizes one pipeline run.
type Result struct {
	FilesIndexed int
	FilesSkipped int
	FilesDeleted int
	Errors       int
}

// Pipeline runs indexing passes over a root directory.
type Pipeline struct {
	deps Dependencies
}

// New creates a Pipeline.
func New(deps Dependencies) *Pipeline {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 32
	}
	return &Pipeline{deps: deps}
}

// Run performs one full indexing pass: walk, diff against the stored
// modification-time map, update II and (if enabled) ES for changed files,
// delete entries for files that vanished or went binary, then persist the
// new map (spec §4.7).
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	prevMeta, err := LoadMetadata(opts.IndexDir)
	if err != nil {
		return Result{}, err
	}

	files, err := p.deps.Walker.Walk(ctx, scan.Options{
		Root:              opts.Root,
		ExcludeSubstrings: opts.ExcludePatterns,
		MaxFileBytes:      opts.MaxFileBytes,
	})
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrIO, "walk", err)
	}

	if opts.ForceEmbeddings && p.deps.EmbedStore != nil {
		if err := p.deps.EmbedStore.ClearAll(ctx); err != nil {
			return Result{}, errs.Wrap(errs.ErrIO, "clear embedding store for --force-embeddings", err)
		}
	}

	newMeta := Metadata{}
	var result Result
	var seen int

	for rec := range files {
		seen++
		if opts.OnProgress != nil {
			opts.OnProgress(seen, 0, rec.Path)
		}

		info, statErr := os.Stat(rec.AbsPath)
		if statErr != nil {
			continue // vanished between walk and stat; next run's diff will delete it
		}
		mtime := info.ModTime().Unix()
		newMeta[rec.Path] = mtime

		if prev, ok := prevMeta[rec.Path]; ok && prev == mtime && !opts.ForceEmbeddings {
			result.FilesSkipped++
			continue
		}

		if err := p.indexFile(ctx, rec, mtime, opts); err != nil {
			slog.Warn("index file failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
			result.Errors++
			continue
		}
		result.FilesIndexed++
	}

	deleted := diffMissing(prevMeta, newMeta)
	if len(deleted) > 0 {
		if err := p.deps.Index.Delete(ctx, deleted); err != nil {
			return result, errs.Wrap(errs.ErrIO, "delete stale II documents", err)
		}
		if p.deps.EmbedStore != nil {
			for _, path := range deleted {
				if err := p.deps.EmbedStore.DeleteFile(ctx, path); err != nil {
					slog.Warn("delete stale ES entry", slog.String("path", path), slog.String("error", err.Error()))
				}
			}
		}
		result.FilesDeleted = len(deleted)
	}

	if err := newMeta.Save(opts.IndexDir); err != nil {
		return result, err
	}
	return result, nil
}

func diffMissing(prev, walked Metadata) []string {
	var missing []string
	for path := range prev {
		if _, ok := walked[path]; !ok {
			missing = append(missing, path)
		}
	}
	return missing
}

// indexFile extracts symbols, writes the II document, and (if enabled)
// syncs embeddings for one changed file. mtime is the file's modification
// time (unix seconds) as observed by Run's stat call.
func (p *Pipeline) indexFile(ctx context.Context, rec scan.FileRecord, mtime int64, opts Options) error {
	var symbolNames []string
	var symbols []symbol.Symbol
	if scan.CodeLanguages[rec.Language] {
		var err error
		symbols, err = p.deps.Extractor.Extract(ctx, rec.Content, rec.Language)
		if err != nil {
			slog.Debug("symbol extraction failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
		}
		for _, s := range symbols {
			symbolNames = append(symbolNames, s.Name)
		}
	}

	doc := &store.Document{
		Path:     rec.Path,
		Content:  string(rec.Content),
		Language: rec.Language,
		Symbols:  strings.Join(symbolNames, " "),
	}
	if err := p.deps.Index.Index(ctx, []*store.Document{doc}); err != nil {
		return err
	}

	if p.deps.Embeddings == nil || p.deps.EmbedStore == nil || opts.EmbeddingsMode == config.EmbeddingOff {
		return nil
	}
	return p.syncEmbeddings(ctx, rec, mtime, symbols, opts)
}

// syncEmbeddings re-embeds only the symbols whose content changed since the
// last sync, carrying forward unchanged vectors, then calls SyncFile so
// symbols removed from the file are dropped too (spec §4.7 step 5).
func (p *Pipeline) syncEmbeddings(ctx context.Context, rec scan.FileRecord, mtime int64, symbols []symbol.Symbol, opts Options) error {
	fileHash := hashutil.Hex(rec.Content)

	if !opts.ForceEmbeddings {
		needsUpdate, err := p.deps.EmbedStore.FileNeedsUpdate(ctx, rec.Path, fileHash)
		if err != nil {
			return err
		}
		if !needsUpdate {
			return nil
		}
	}

	existing, err := p.deps.EmbedStore.GetSymbolsForPath(ctx, rec.Path)
	if err != nil {
		return err
	}
	existingByID := make(map[string]embedstore.SymbolEmbedding, len(existing))
	for _, sym := range existing {
		existingByID[sym.SymbolID] = sym
	}

	lines := strings.Split(string(rec.Content), "\n")
	ids := make([]string, len(symbols))
	contentHashes := make([]string, len(symbols))
	var toEmbedIdx []int
	for i, s := range symbols {
		ids[i] = symbolID(rec.Path, s)
		contentHashes[i] = hashutil.HexString(symbolText(lines, s))
		if prior, ok := existingByID[ids[i]]; !opts.ForceEmbeddings && ok && prior.ContentHash == contentHashes[i] {
			continue
		}
		toEmbedIdx = append(toEmbedIdx, i)
	}

	vectors := make([][]float32, len(symbols))
	for i := range symbols {
		if prior, ok := existingByID[ids[i]]; ok && prior.ContentHash == contentHashes[i] {
			vectors[i] = prior.Embedding
		}
	}
	if len(toEmbedIdx) > 0 {
		texts := make([]string, len(toEmbedIdx))
		for j, idx := range toEmbedIdx {
			texts[j] = symbolText(lines, symbols[idx])
		}
		batching := embed.NewBatchingProvider(p.deps.Embeddings, p.deps.BatchSize)
		res, err := batching.Embed(ctx, texts)
		if err != nil {
			return errs.Wrap(errs.ErrProvider, "embed symbols", err)
		}
		for j, idx := range toEmbedIdx {
			vectors[idx] = res.Vectors[j]
		}
	}

	inputs := make([]embedstore.SymbolInput, len(symbols))
	for i, s := range symbols {
		inputs[i] = embedstore.SymbolInput{
			SymbolID:    ids[i],
			Language:    rec.Language,
			SymbolKind:  string(s.Kind),
			SymbolName:  s.Name,
			StartLine:   s.StartLine,
			EndLine:     s.EndLine,
			ContentHash: contentHashes[i],
			Embedding:   vectors[i],
		}
	}

	return p.deps.EmbedStore.SyncFile(ctx, rec.Path, fileHash, mtime, inputs)
}

func symbolID(path string, s symbol.Symbol) string {
	return hashutil.TruncatedString(path+":"+string(s.Kind)+":"+s.Name+":"+strconv.Itoa(s.StartLine), 16)
}

func symbolText(lines []string, s symbol.Symbol) string {
	start := s.StartLine - 1
	end := s.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
