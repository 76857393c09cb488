package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic, in-memory Embedder for tests: the same
// text always produces the same vector, with no external process required.
// Grounded on nico-hyperjump-sagasu's embedding.MockEmbedder.
type MockEmbedder struct {
	dim int
}

// NewMockEmbedder returns a mock embedder producing unit-norm vectors of
// the given dimension. dim <= 0 defaults to 8.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &MockEmbedder{dim: dim}
}

func (e *MockEmbedder) Dimension() int { return e.dim }
func (e *MockEmbedder) Model() string  { return "mock" }

// Embed returns exactly len(texts) deterministic vectors in input order.
func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *MockEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32(math.Sin(float64(seed)*float64(i+1))*0.5 + 0.01*float64(i))
	}
	normalize(v)
	return v
}

var _ Embedder = (*MockEmbedder)(nil)
