// Package embedder converts chunk text into unit-norm float vectors of a
// fixed dimensionality, shared across tasks behind the Embedder interface
// (spec §4.3).
package embedder

import (
	"context"
	"math"
)

// DefaultBatchSize is B in spec §4.3: the number of texts a caller should
// submit per Embed call.
const DefaultBatchSize = 32

// Embedder converts chunk texts into unit-norm vectors. A single instance
// must be safe to call concurrently from multiple goroutines; scale-out is
// achieved by sharing one Embedder across workers, not by instantiating
// many (spec §4.3's concurrency note).
type Embedder interface {
	// Embed returns exactly len(texts) vectors, in input order, or fails
	// the whole batch. Callers may submit more than DefaultBatchSize texts;
	// implementations split internally while preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns D, the fixed length of every vector this Embedder
	// produces.
	Dimension() int
	// Model identifies the embedding model backing this instance, used by
	// the Coordinator to detect a model change across runs and force a
	// full reindex.
	Model() string
}

// normalize scales v to unit L2 norm in place. A zero vector is left
// unchanged (embedding models should never emit one, but dividing by zero
// would produce NaNs that silently poison every downstream cosine score).
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}
