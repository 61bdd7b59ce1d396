package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// BuiltinDimension is the fixed vector size produced by BuiltinProvider.
const BuiltinDimension = 384

// BuiltinProvider is an in-process, hash-based vectorizer. It works without
// external dependencies (no network, no model download) at the cost of
// reduced semantic quality relative to a real embedding model. Adapted from
// a static hash-embedder (internal/embed/static.go).
type BuiltinProvider struct{}

// NewBuiltinProvider creates the builtin provider.
func NewBuiltinProvider() *BuiltinProvider { return &BuiltinProvider{} }

func (p *BuiltinProvider) Model() string { return "builtin" }

func (p *BuiltinProvider) Dimension() (int, bool) { return BuiltinDimension, true }

func (p *BuiltinProvider) Embed(_ context.Context, texts []string) (Result, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = embedText(text)
	}
	return Result{Model: "builtin", Dimension: BuiltinDimension, Vectors: vectors}, nil
}

func (p *BuiltinProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}

// programmingStopWords are filtered out before tokens contribute weight.
var programmingStopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
}

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

func embedText(text string) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, BuiltinDimension)
	}
	return normalizeVector(generateVector(trimmed))
}

func generateVector(text string) []float32 {
	vector := make([]float32, BuiltinDimension)

	tokens := filterStopWords(tokenize(text))
	for _, token := range tokens {
		vector[hashToIndex(token, BuiltinDimension)] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, BuiltinDimension)] += ngramWeight
	}

	return vector
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCodeToken(word) {
			if lower := strings.ToLower(t); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !programmingStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// normalizeVector scales v to unit length; the zero vector is returned
// unchanged (mirrors the cosine-similarity convention used by internal/store).
func normalizeVector(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
