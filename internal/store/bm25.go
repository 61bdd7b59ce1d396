package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/cgrep/cgrep/internal/errs"
)

const (
	CodeTokenizerName = "code_tokenizer"
	CodeStopFilterName = "code_stop"
	CodeAnalyzerName   = "code_analyzer"

	fieldPath     = "path"
	fieldContent  = "content"
	fieldLanguage = "language"
	fieldSymbols  = "symbols"
)

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(CodeStopFilterName, codeStopFilterConstructor)
}

// BleveIndex implements Index using Bleve v2 over a multi-field document
// mapping {path, content, language, symbols}, per spec §3's inverted-index
// document shape.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config Config
	closed bool
}

// bleveDoc is the per-field document Bleve actually indexes.
type bleveDoc struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
	Symbols  string `json:"symbols"`
}

// New creates or opens a BM25 index at path. If path is empty, an in-memory
// index is created (used by tests).
func New(path string, config Config) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, errs.Wrap(errs.ErrSchema, "bm25 index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, errs.Wrap(errs.ErrIO, "bm25 index dir", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("bm25_index_corrupted", slog.String("path", path), slog.String("error", err.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, errs.Wrap(errs.ErrSchema, "bm25 index recovery", rmErr)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrSchema, "open bm25 index", err)
	}

	return &BleveIndex{index: idx, path: path, config: config}, nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": CodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			CodeStopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = CodeAnalyzerName

	docMapping := bleve.NewDocumentMapping()
	for _, field := range []string{fieldPath, fieldContent, fieldLanguage, fieldSymbols} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = CodeAnalyzerName
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}
	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

// Index upserts one document per path.
func (b *BleveIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrIndexClosed
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		bd := bleveDoc{Path: d.Path, Content: d.Content, Language: d.Language, Symbols: d.Symbols}
		if err := batch.Index(d.Path, bd); err != nil {
			return errs.Wrap(errs.ErrSchema, fmt.Sprintf("index document %s", d.Path), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return errs.Wrap(errs.ErrSchema, "bm25 batch write", err)
	}
	return nil
}

// Search queries across the tokenized fields named in opts.Fields (or both
// content and symbols when empty, per spec §5), returning up to limit
// BM25-ranked results.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, limit int, opts SearchOptions) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrIndexClosed
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{fieldContent, fieldSymbols}
	}

	disjunction := bleve.NewDisjunctionQuery()
	for _, f := range fields {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(f)
		disjunction.AddQuery(mq)
	}

	req := bleve.NewSearchRequest(disjunction)
	req.Size = limit
	req.IncludeLocations = true
	req.Fields = []string{fieldPath}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrQuery, "bm25 search", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &BM25Result{
			Path:         hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return results, nil
}

// Delete removes documents by path.
func (b *BleveIndex) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrIndexClosed
	}

	batch := b.index.NewBatch()
	for _, p := range paths {
		batch.Delete(p)
	}
	if err := b.index.Batch(batch); err != nil {
		return errs.Wrap(errs.ErrSchema, "bm25 batch delete", err)
	}
	return nil
}

// AllPaths returns every indexed path.
func (b *BleveIndex) AllPaths() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrIndexClosed
	}

	docCount, _ := b.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = nil

	result, err := b.index.Search(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrQuery, "bm25 list paths", err)
	}
	paths := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		paths[i] = hit.ID
	}
	return paths, nil
}

// Stats reports document count.
func (b *BleveIndex) Stats() *IndexStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return &IndexStats{}
	}
	docCount, _ := b.index.DocCount()
	return &IndexStats{DocumentCount: int(docCount)}
}

// Close closes the underlying Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			terms[term] = struct{}{}
		}
	}
	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

var _ Index = (*BleveIndex)(nil)

func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

type bleveCodeTokenizer struct{}

func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

type bleveCodeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
