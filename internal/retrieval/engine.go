package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cgrep/cgrep/internal/embed"
	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/hashutil"
	"github.com/cgrep/cgrep/internal/store"
	"github.com/cgrep/cgrep/internal/store/embedstore"
	"github.com/cgrep/cgrep/internal/telemetry"
)

var errEmbeddingsDisabled = errors.New("embeddings are disabled for this index")

const (
	defaultCandidateK = 200
	minCandidateK      = 50
	maxCandidateK      = 500
	defaultFanoutMult  = 20
)

// Engine executes keyword, semantic, and hybrid queries against the
// Inverted Index and (when available) the Embedding Store.
type Engine struct {
	Index      store.Index
	EmbedStore *embedstore.Store // nil disables semantic/hybrid mode
	Embeddings embed.Provider    // nil disables semantic/hybrid mode
	Root       string            // search root, used to read file content for snippets
	Metrics    *telemetry.QueryMetrics // nil disables query telemetry
}

// Search runs query under opts.Mode and returns up to opts.MaxResults
// results, filtered and ranked per spec §4.9, recording latency/hit-count
// telemetry for the query when e.Metrics is set.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()
	var results []Result
	var err error

	switch opts.Mode {
	case ModeSemantic:
		results, err = e.semanticSearch(ctx, query, opts)
	case ModeHybrid:
		results, err = e.hybridSearch(ctx, query, opts)
	default:
		results, err = e.keywordSearch(ctx, query, opts)
	}

	if err == nil && e.Metrics != nil {
		e.Metrics.Record(telemetry.QueryEvent{
			Query:       query,
			QueryType:   queryTypeFor(opts.Mode),
			ResultCount: len(results),
			Latency:     time.Since(start),
			Timestamp:   start,
		})
	}

	return results, err
}

// queryTypeFor maps a retrieval Mode onto telemetry's QueryType taxonomy.
func queryTypeFor(mode Mode) telemetry.QueryType {
	switch mode {
	case ModeSemantic:
		return telemetry.QueryTypeSemantic
	case ModeHybrid:
		return telemetry.QueryTypeMixed
	default:
		return telemetry.QueryTypeLexical
	}
}

// effectiveCandidateK mirrors HybridConfig::effective_candidate_k: an
// explicit value passes through, max_results 0 gives the default of 200,
// otherwise scale with max_results clamped to [50, 500].
func effectiveCandidateK(opts Options) int {
	if opts.CandidateK > 0 {
		return opts.CandidateK
	}
	k := opts.MaxResults * defaultFanoutMult
	if k == 0 {
		return defaultCandidateK
	}
	if k < minCandidateK {
		return minCandidateK
	}
	if k > maxCandidateK {
		return maxCandidateK
	}
	return k
}

func (e *Engine) keywordSearch(ctx context.Context, query string, opts Options) ([]Result, error) {
	fanout := effectiveCandidateK(opts)
	bm25, err := e.Index.Search(ctx, query, fanout, store.SearchOptions{Fields: []string{"content", "symbols"}})
	if err != nil {
		return nil, err
	}

	glob := compileGlob(opts.Glob)
	exclude := compileGlob(opts.Exclude)

	var results []Result
	for _, r := range bm25 {
		if !passesFilters(r.Path, opts, glob, exclude) {
			continue
		}
		content, err := e.readFile(r.Path)
		snippet, line := "", 0
		if err == nil {
			snippet, line = findSnippetWithLine(content, query)
		}
		results = append(results, Result{
			Path:      r.Path,
			Score:     r.Score,
			TextScore: r.Score,
			Snippet:   snippet,
			Line:      line,
			ResultID:  generateResultID(r.Path, line, snippet),
		})
		if len(results) >= opts.MaxResults {
			break
		}
	}
	return results, nil
}

func (e *Engine) semanticSearch(ctx context.Context, query string, opts Options) ([]Result, error) {
	if e.EmbedStore == nil || e.Embeddings == nil {
		return nil, errs.Wrap(errs.ErrQuery, "semantic search requires embeddings to be enabled", errEmbeddingsDisabled)
	}
	vec, err := e.Embeddings.EmbedOne(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.ErrProvider, "embed query", err)
	}

	sims, err := e.EmbedStore.SearchSimilar(ctx, vec, opts.MaxResults)
	if err != nil {
		return nil, err
	}

	glob := compileGlob(opts.Glob)
	exclude := compileGlob(opts.Exclude)

	var results []Result
	for _, sim := range sims {
		if !passesFilters(sim.Symbol.Path, opts, glob, exclude) {
			continue
		}
		vectorNorm := normalizeVectorScore(float64(sim.Score))
		results = append(results, Result{
			Path:        sim.Symbol.Path,
			Score:       vectorNorm,
			VectorScore: float64(sim.Score),
			VectorNorm:  vectorNorm,
			Line:        sim.Symbol.StartLine,
			ChunkStart:  sim.Symbol.StartLine,
			ChunkEnd:    sim.Symbol.EndLine,
			ResultID:    generateResultID(sim.Symbol.Path, sim.Symbol.StartLine, ""),
		})
	}
	return results, nil
}

func (e *Engine) hybridSearch(ctx context.Context, query string, opts Options) ([]Result, error) {
	fanout := effectiveCandidateK(opts)
	bm25, err := e.Index.Search(ctx, query, fanout, store.SearchOptions{Fields: []string{"content", "symbols"}})
	if err != nil {
		return nil, err
	}
	if len(bm25) == 0 {
		return nil, nil
	}

	glob := compileGlob(opts.Glob)
	exclude := compileGlob(opts.Exclude)

	type candidate struct {
		path    string
		score   float64
		line    int
		snippet string
	}
	var candidates []candidate
	for _, r := range bm25 {
		if !passesFilters(r.Path, opts, glob, exclude) {
			continue
		}
		content, err := e.readFile(r.Path)
		snippet, line := "", 0
		if err == nil {
			snippet, line = findSnippetWithLine(content, query)
		}
		candidates = append(candidates, candidate{path: r.Path, score: r.Score, line: line, snippet: snippet})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	maxScore := candidates[0].score
	for _, c := range candidates {
		if c.score > maxScore {
			maxScore = c.score
		}
	}

	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights
	}

	var queryVec []float32
	if e.Embeddings != nil {
		if v, err := e.Embeddings.EmbedOne(ctx, query); err == nil {
			queryVec = v
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		textNorm := 0.0
		if maxScore > 0 {
			textNorm = c.score / maxScore
		}

		vectorScore, vectorNorm, chunkStart, chunkEnd := 0.0, 0.5, 0, 0
		if e.EmbedStore != nil && queryVec != nil && c.line > 0 {
			if sym, found, err := e.EmbedStore.GetChunkForLine(ctx, c.path, c.line); err == nil && found {
				cos := float64(embedstore.CosineSimilarity(queryVec, sym.Embedding))
				vectorScore = cos
				vectorNorm = normalizeVectorScore(cos)
				chunkStart = sym.StartLine
				chunkEnd = sym.EndLine
			}
		}

		combined := weights.Text*textNorm + weights.Vector*vectorNorm
		results = append(results, Result{
			Path:        c.path,
			Score:       combined,
			TextScore:   c.score,
			VectorScore: vectorScore,
			TextNorm:    textNorm,
			VectorNorm:  vectorNorm,
			Snippet:     c.snippet,
			Line:        c.line,
			ChunkStart:  chunkStart,
			ChunkEnd:    chunkEnd,
			ResultID:    generateResultID(c.path, c.line, c.snippet),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TextNorm != b.TextNorm {
			return a.TextNorm > b.TextNorm
		}
		if a.VectorNorm != b.VectorNorm {
			return a.VectorNorm > b.VectorNorm
		}
		return a.Path < b.Path
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// normalizeVectorScore maps cosine similarity [-1, 1] to [0, 1].
func normalizeVectorScore(cos float64) float64 {
	return (cos + 1.0) / 2.0
}

// generateResultID delegates to hashutil's shared scheme so locate/expand
// (internal/agent) compute identical ids for the same (path, line, snippet).
func generateResultID(path string, line int, snippet string) string {
	return hashutil.ResultID(path, line, snippet)
}

func (e *Engine) readFile(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(e.Root, relPath))
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, "read file for snippet", err)
	}
	return string(data), nil
}
