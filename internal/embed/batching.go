package embed

import "context"

// BatchingProvider wraps a Provider, slicing large inputs into fixed-size
// sub-batches before delegating and concatenating the results back together.
type BatchingProvider struct {
	inner     Provider
	batchSize int
}

// NewBatchingProvider wraps inner with a batch size; batchSize <= 0 falls
// back to 1 (no batching).
func NewBatchingProvider(inner Provider, batchSize int) *BatchingProvider {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BatchingProvider{inner: inner, batchSize: batchSize}
}

func (b *BatchingProvider) Model() string { return b.inner.Model() }

func (b *BatchingProvider) Dimension() (int, bool) { return b.inner.Dimension() }

func (b *BatchingProvider) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		dim, _ := b.inner.Dimension()
		return Result{Model: b.inner.Model(), Dimension: dim}, nil
	}

	var allVectors [][]float32
	dimension := 0
	model := b.inner.Model()
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		res, err := b.inner.Embed(ctx, texts[start:end])
		if err != nil {
			return Result{}, err
		}
		dimension = res.Dimension
		model = res.Model
		allVectors = append(allVectors, res.Vectors...)
	}
	return Result{Model: model, Dimension: dimension, Vectors: allVectors}, nil
}

func (b *BatchingProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, b, text)
}
