// Package chunk implements the Text Chunker (TC): splitting a file's
// content into overlapping line windows used as embedding units. The
// algorithm and defaults are ported from the original cgrep chunker
// (sliding window, step = L-O), in an options-struct style.
package chunk

import (
	"fmt"
	"strings"
)

// Defaults per spec §4.3 / original chunker.rs.
const (
	DefaultLines       = 80
	DefaultOverlap     = 20
	DefaultMinChars    = 30
	DefaultMaxFileBytes = 2 * 1024 * 1024
)

// Chunk is a line-bounded window of a file's content.
type Chunk struct {
	Path      string
	StartLine int // 1-indexed
	EndLine   int // inclusive
	Text      string
}

// Options configures the chunker. Zero values fall back to the package
// defaults when passed to New.
type Options struct {
	Lines       int
	Overlap     int
	MinChars    int
	MaxFileBytes int
}

// Chunker splits file content into overlapping line windows.
type Chunker struct {
	opts Options
}

// New validates options (0 < Overlap < Lines, per spec §4.3) and returns a
// Chunker, filling in unset fields with defaults.
func New(opts Options) (*Chunker, error) {
	if opts.Lines == 0 {
		opts.Lines = DefaultLines
	}
	if opts.Overlap == 0 {
		opts.Overlap = DefaultOverlap
	}
	if opts.MinChars == 0 {
		opts.MinChars = DefaultMinChars
	}
	if opts.MaxFileBytes == 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Lines {
		return nil, fmt.Errorf("chunk: overlap (%d) must satisfy 0 <= overlap < lines (%d)", opts.Overlap, opts.Lines)
	}
	return &Chunker{opts: opts}, nil
}

// MaxFileBytes reports the configured max-bytes threshold; callers must
// check file size against it before calling Chunk (spec §4.3: "Files
// exceeding max_file_bytes are rejected (caller must check)").
func (c *Chunker) MaxFileBytes() int { return c.opts.MaxFileBytes }

// Chunk splits content into overlapping line windows. Windows whose joined
// text is shorter than MinChars are discarded.
func (c *Chunker) Chunk(path string, content []byte) []Chunk {
	lines := strings.Split(string(content), "\n")
	total := len(lines)
	if total == 1 && lines[0] == "" {
		return nil
	}

	step := c.opts.Lines - c.opts.Overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	for start := 1; start <= total; start += step {
		end := start + c.opts.Lines - 1
		if end > total {
			end = total
		}
		text := strings.Join(lines[start-1:end], "\n")
		if len(text) >= c.opts.MinChars {
			chunks = append(chunks, Chunk{
				Path:      path,
				StartLine: start,
				EndLine:   end,
				Text:      text,
			})
		}
	}
	return chunks
}
