// Package agent implements the Agent Protocol (AP): a two-stage
// locate/expand JSON contract for coding-agent callers. Locate runs the
// Retrieval Engine and reports a cache-wrapped results envelope; expand
// resolves stable result ids back to file context windows. Grounded on
// original_source/src/query/agent.rs (expand's exact id/context-window
// algorithm) and spec §4.12, in a request/response struct
// idiom (internal/search package's result types).
package agent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cgrep/cgrep/internal/cache"
	"github.com/cgrep/cgrep/internal/hashutil"
	"github.com/cgrep/cgrep/internal/retrieval"
	"github.com/cgrep/cgrep/internal/scan"
)

// SchemaVersion is the envelope version emitted in every locate/expand
// response's meta block.
const SchemaVersion = 1

const defaultSnippetLen = 150

// LocateMeta describes the locate stage's response envelope.
type LocateMeta struct {
	SchemaVersion int    `json:"schema_version"`
	Stage         string `json:"stage"`
	CacheHit      bool   `json:"cache_hit"`
	Query         string `json:"query"`
	Mode          string `json:"mode"`
	SearchRoot    string `json:"search_root"`
}

// LocateResult is one hit in a locate response.
type LocateResult struct {
	ID      string  `json:"id"`
	Path    string  `json:"path"`
	Line    int     `json:"line"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// LocatePayload is the full locate-stage response.
type LocatePayload struct {
	Meta    LocateMeta     `json:"meta"`
	Results []LocateResult `json:"results"`
}

// ExpandMeta describes the expand stage's response envelope.
type ExpandMeta struct {
	SchemaVersion int    `json:"schema_version"`
	Stage         string `json:"stage"`
	RequestedIDs  int    `json:"requested_ids"`
	ResolvedIDs   int    `json:"resolved_ids"`
	Context       int    `json:"context"`
	SearchRoot    string `json:"search_root"`
}

// ExpandResult is one resolved id's context window.
type ExpandResult struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Line          int      `json:"line"`
	StartLine     int      `json:"start_line"`
	EndLine       int      `json:"end_line"`
	Snippet       string   `json:"snippet"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// ExpandPayload is the full expand-stage response.
type ExpandPayload struct {
	Meta    ExpandMeta     `json:"meta"`
	Results []ExpandResult `json:"results"`
}

// Protocol wires the Retrieval Engine, an optional Result Cache, and a file
// walker for re-scanning at expand time.
type Protocol struct {
	Engine *retrieval.Engine
	Cache  *cache.Cache
	Walker *scan.Walker
	Root   string
}

// Locate runs query under opts via the Retrieval Engine, using key to check
// and populate the Result Cache (when Cache is non-nil).
func (p *Protocol) Locate(ctx context.Context, query string, opts retrieval.Options, key cache.Key) (LocatePayload, error) {
	results, cacheHit, err := p.locateResults(ctx, query, opts, key)
	if err != nil {
		return LocatePayload{}, err
	}

	return LocatePayload{
		Meta: LocateMeta{
			SchemaVersion: SchemaVersion,
			Stage:         "locate",
			CacheHit:      cacheHit,
			Query:         query,
			Mode:          string(opts.Mode),
			SearchRoot:    p.Root,
		},
		Results: results,
	}, nil
}

func (p *Protocol) locateResults(ctx context.Context, query string, opts retrieval.Options, key cache.Key) ([]LocateResult, bool, error) {
	if p.Cache != nil {
		if data, found, err := p.Cache.Get(key); err == nil && found {
			var cached []LocateResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, true, nil
			}
		}
	}

	hits, err := p.Engine.Search(ctx, query, opts)
	if err != nil {
		return nil, false, err
	}
	results := make([]LocateResult, len(hits))
	for i, h := range hits {
		results[i] = LocateResult{ID: h.ResultID, Path: h.Path, Line: h.Line, Score: h.Score, Snippet: h.Snippet}
	}

	if p.Cache != nil {
		if data, err := json.Marshal(results); err == nil {
			_ = p.Cache.Put(key, data)
		}
	}
	return results, false, nil
}

// Expand resolves ids back into context windows by re-scanning every file
// under Root, recomputing each line's stable id, and keeping matches.
// Unresolved ids are silently omitted, per spec §4.12.
func (p *Protocol) Expand(ctx context.Context, ids []string, contextLines int) (ExpandPayload, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	files, err := p.Walker.Walk(ctx, scan.Options{Root: p.Root})
	if err != nil {
		return ExpandPayload{}, err
	}

	var results []ExpandResult
	for rec := range files {
		lines := splitLines(string(rec.Content))
		for idx, line := range lines {
			lineNum := idx + 1
			snippet := lineToSnippet(line)
			id := hashutil.ResultID(rec.Path, lineNum, snippet)
			if _, ok := wanted[id]; !ok {
				continue
			}

			before, after := contextWindow(lines, lineNum, contextLines)
			results = append(results, ExpandResult{
				ID:            id,
				Path:          rec.Path,
				Line:          lineNum,
				StartLine:     lineNum - len(before),
				EndLine:       lineNum + len(after),
				Snippet:       snippet,
				ContextBefore: before,
				ContextAfter:  after,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].Line < results[j].Line
	})

	return ExpandPayload{
		Meta: ExpandMeta{
			SchemaVersion: SchemaVersion,
			Stage:         "expand",
			RequestedIDs:  len(wanted),
			ResolvedIDs:   len(results),
			Context:       contextLines,
			SearchRoot:    p.Root,
		},
		Results: results,
	}, nil
}

// splitLines splits on "\n", dropping the single trailing empty element a
// terminal newline produces so line numbering matches a file with N real
// lines rather than N+1 (mirrors Rust's str::lines()).
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineToSnippet(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= defaultSnippetLen {
		return trimmed
	}
	return trimmed[:defaultSnippetLen] + "..."
}

// contextWindow returns up to contextLines lines before and after the
// 1-indexed lineNum, clamped to the slice bounds.
func contextWindow(lines []string, lineNum, contextLines int) ([]string, []string) {
	if contextLines <= 0 || len(lines) == 0 {
		return nil, nil
	}
	idx := lineNum - 1
	start := idx - contextLines
	if start < 0 {
		start = 0
	}
	end := idx + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	before := append([]string(nil), lines[start:idx]...)
	var after []string
	if idx+1 < end {
		after = append([]string(nil), lines[idx+1:end]...)
	}
	return before, after
}
