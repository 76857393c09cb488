package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	v1, err := e.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestMockEmbedderPreservesOrderAndCount(t *testing.T) {
	e := NewMockEmbedder(8)
	texts := []string{"a", "b", "c"}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	va, _ := e.Embed(context.Background(), []string{"a"})
	assert.Equal(t, va[0], vecs[0])
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.Embed(context.Background(), []string{"authenticate_user"})
	require.NoError(t, err)

	var sumSq float64
	for _, x := range vecs[0] {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
}

func TestMockEmbedderDimension(t *testing.T) {
	e := NewMockEmbedder(64)
	assert.Equal(t, 64, e.Dimension())
}
