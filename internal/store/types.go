// Package store provides the Inverted Index (II): a Bleve-backed BM25 store
// over a multi-field per-file document {path, content, language, symbols}.
package store

import (
	"context"
	"fmt"
)

// Document is one indexed file: one document per path (spec §3 invariant).
type Document struct {
	Path     string // stored + tokenized
	Content  string // tokenized + stored
	Language string // tokenized + stored
	Symbols  string // space-joined symbol names, tokenized + stored
}

// BM25Result is a single match from the inverted index.
type BM25Result struct {
	Path         string
	Score        float64
	MatchedTerms []string
}

// IndexStats reports coarse statistics about the index.
type IndexStats struct {
	DocumentCount int
}

// SearchOptions restricts a BM25 query to specific fields, per spec §5's
// "Parse a user query against fields {content, symbols}".
type SearchOptions struct {
	Fields []string // empty = search all tokenized fields
}

// Index provides the Inverted Index (II) capability: BM25 search over the
// multi-field document schema, with transactional per-path writes.
type Index interface {
	// Index upserts documents (one per path; replaces any existing document
	// for the same path).
	Index(ctx context.Context, docs []*Document) error

	// Search returns up to limit documents ranked by BM25 score, descending.
	Search(ctx context.Context, query string, limit int, opts SearchOptions) ([]*BM25Result, error)

	// Delete removes documents by path.
	Delete(ctx context.Context, paths []string) error

	// AllPaths returns every indexed path (for consistency checks against
	// the modification-time metadata map).
	AllPaths() ([]string, error)

	// Stats reports index statistics.
	Stats() *IndexStats

	// Close releases any held file handles.
	Close() error
}

// Config holds BM25 tokenization settings. The index keeps it, but the
// registered analyzer always uses TokenizeCode's fixed 2-character minimum
// and DefaultCodeStopWords, so these fields do not change what is indexed
// or queried. Bleve's BM25 scorer uses its own fixed k1/b.
type Config struct {
	// StopWords is a list of words to filter out during tokenization.
	StopWords []string

	// MinTokenLength is the minimum token length to index (default: 2).
	MinTokenLength int
}

// DefaultConfig returns the default BM25 configuration.
func DefaultConfig() Config {
	return Config{
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords contains programming keywords filtered out of the
// code-aware tokenizer.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// ErrIndexClosed is returned by Index/Search/Delete after Close.
var ErrIndexClosed = fmt.Errorf("index is closed")
