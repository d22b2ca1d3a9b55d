package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	v1, err := m.EmbedText(ctx, "what time do you open")
	require.NoError(t, err)
	v2, err := m.EmbedText(ctx, "what time do you open")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 384)
}

func TestMockEmbedder_DifferentTexts(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	v1, err := m.EmbedText(ctx, "hours")
	require.NoError(t, err)
	v2, err := m.EmbedText(ctx, "location")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestMockEmbedder_BatchMatchesSingle(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	single, err := m.EmbedText(ctx, "hours")
	require.NoError(t, err)

	batch, err := m.EmbedTexts(ctx, []string{"hours", "location"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, single, batch[0])
}

func TestMockEmbedder_Injection(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}

	v, err := m.EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, 1, m.CallCount())
}
