// Package embed implements the Embedding Provider (EP) contract: a small
// capability producing fixed-dimension vectors for batches of text. Four
// variants are provided (command, builtin, ollama, dummy) plus a batching adapter,
// grounded on a provider-interface style (internal/embed's
// original Embedder/StaticEmbedder split) and the original cgrep's
// provider.rs trait.
package embed

import (
	"context"
	"sync"
)

// DefaultModelID is used when no model is configured.
const DefaultModelID = "local-model-id"

// Result is the outcome of an embed call: one vector per input text, all of
// the same dimension.
type Result struct {
	Model     string
	Dimension int
	Vectors   [][]float32
}

// Provider is the EP capability surface. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Model returns the provider's model identifier.
	Model() string

	// Dimension returns the cached vector dimension, if known yet.
	Dimension() (int, bool)

	// Embed generates one vector per input text.
	Embed(ctx context.Context, texts []string) (Result, error)

	// EmbedOne is a single-text convenience wrapper around Embed.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// embedOne is shared by every Provider implementation below.
func embedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	res, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res.Vectors) == 0 {
		return nil, errNoVector
	}
	return res.Vectors[0], nil
}

// dimensionCache caches a provider's dimension after its first successful
// call, per the EP contract ("the first successful call caches the
// dimension").
type dimensionCache struct {
	mu  sync.RWMutex
	dim *int
}

func (d *dimensionCache) get() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.dim == nil {
		return 0, false
	}
	return *d.dim, true
}

func (d *dimensionCache) set(dim int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dim = &dim
}
