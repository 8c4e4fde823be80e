package mock

import (
	"context"
	"testing"

	"github.com/poiesic/recollect/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder()
	a, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	b, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	c, err := e.EmbedText(context.Background(), "goodbye")
	require.NoError(t, err)

	assert.Len(t, a, Dimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, e.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-4, "vectors are unit length")
}

func TestMockExtractor_Default(t *testing.T) {
	x := NewMockExtractor()
	out, err := x.Extract(context.Background(), ai.ExtractionRequest{Content: "Alice met Bob in Paris, and Alice smiled."})
	require.NoError(t, err)

	require.Len(t, out.Entities, 3)
	assert.Equal(t, "Alice", out.Entities[0].Name)
	assert.Equal(t, ai.GenericEntityType, out.Entities[0].Type)
	require.Len(t, out.Facts, 2)
	assert.Equal(t, "Bob", out.Facts[0].Target)
	assert.Equal(t, "Paris", out.Facts[1].Target)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	_, _ = p.Extractor().Extract(context.Background(), ai.ExtractionRequest{Content: "x"})
	assert.Equal(t, 1, p.GetMockExtractor().CallCount())

	p.GetMockExtractor().Reset()
	assert.Equal(t, 0, p.GetMockExtractor().CallCount())
	assert.NoError(t, p.Close())
}
