// Package contextpack implements the Context Packer (CP): given ranked
// retrieval results, groups them by file, merges overlapping or adjacent
// line ranges, and reads the surrounding lines into blocks for display or
// agent consumption. Grounded on original_source/src/hybrid.rs's
// ContextPackBuilder, in an options-struct style
// (internal/chunk.Chunker).
package contextpack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cgrep/cgrep/internal/errs"
)

// DefaultContextLines matches the original's default context window.
const DefaultContextLines = 3

// Block is one merged, materialized range of a file.
type Block struct {
	StartLine int // 1-indexed
	EndLine   int // inclusive
	Text      string
}

// Pack is every merged block for one file.
type Pack struct {
	Path   string
	Blocks []Block
}

// LineResult is the minimal shape Builder needs from a retrieval result:
// a path and an optional matched line (0 means "no line, skip").
type LineResult struct {
	Path string
	Line int
}

// Builder merges per-file line ranges and reads them into context blocks.
type Builder struct {
	contextLines int
	root         string
}

// New returns a Builder reading files relative to root, expanding each
// matched line by contextLines lines on either side. contextLines <= 0
// falls back to DefaultContextLines.
func New(root string, contextLines int) *Builder {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}
	return &Builder{contextLines: contextLines, root: root}
}

type lineRange struct {
	start int
	end   int
}

// Build groups results by path, merges each path's ranges, and reads the
// merged blocks from disk. Results with Line == 0 are skipped entirely. A
// missing file causes Build to fail with a read error for that path.
func (b *Builder) Build(results []LineResult) ([]Pack, error) {
	byPath := make(map[string][]lineRange)
	var order []string
	for _, r := range results {
		if r.Line <= 0 {
			continue
		}
		if _, seen := byPath[r.Path]; !seen {
			order = append(order, r.Path)
		}
		start := r.Line - b.contextLines
		if start < 1 {
			start = 1
		}
		byPath[r.Path] = append(byPath[r.Path], lineRange{start: start, end: r.Line + b.contextLines})
	}

	packs := make([]Pack, 0, len(order))
	for _, path := range order {
		ranges := byPath[path]
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
		merged := mergeRanges(ranges)

		lines, err := b.readLines(path)
		if err != nil {
			return nil, err
		}

		blocks := make([]Block, 0, len(merged))
		for _, rg := range merged {
			start, end := clamp(rg.start, rg.end, len(lines))
			blocks = append(blocks, Block{
				StartLine: start,
				EndLine:   end,
				Text:      strings.Join(lines[start-1:end], "\n"),
			})
		}
		packs = append(packs, Pack{Path: path, Blocks: blocks})
	}
	return packs, nil
}

// mergeRanges merges ranges whose gap is <= 1 line, assuming ranges is
// sorted ascending by start.
func mergeRanges(ranges []lineRange) []lineRange {
	if len(ranges) == 0 {
		return nil
	}
	merged := []lineRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end+1 {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// clamp bounds [start, end] to [1, total], collapsing to an empty-but-valid
// range (start > end) when total is 0.
func clamp(start, end, total int) (int, int) {
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	if start < 1 {
		start = 1
	}
	return start, end
}

func (b *Builder) readLines(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(b.root, path))
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, fmt.Sprintf("context pack read %s", path), err)
	}
	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}
