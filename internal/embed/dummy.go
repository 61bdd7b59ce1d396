package embed

import "context"

// DummyProvider returns zero vectors of a fixed dimension. Used for testing,
// and selected by New when embeddings.provider is "dummy".
type DummyProvider struct {
	dimension int
}

// NewDummyProvider creates a dummy provider with the given dimension.
func NewDummyProvider(dimension int) *DummyProvider {
	return &DummyProvider{dimension: dimension}
}

func (p *DummyProvider) Model() string { return "dummy" }

func (p *DummyProvider) Dimension() (int, bool) { return p.dimension, true }

func (p *DummyProvider) Embed(_ context.Context, texts []string) (Result, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, p.dimension)
	}
	return Result{Model: "dummy", Dimension: p.dimension, Vectors: vectors}, nil
}

func (p *DummyProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}
