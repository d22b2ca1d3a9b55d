package intentdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/ai/mock"
	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/match"
	"github.com/poiesic/intentdb/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineIntents = `{
	"intents": [
		{
			"tag": "hours_info",
			"patterns": ["store hours", "when do you open"],
			"responses": ["We are open 9-5."]
		},
		{
			"tag": "location_info",
			"patterns": ["where are you located"],
			"responses": ["Main campus."]
		}
	]
}`

// engineVectors places patterns and queries so match outcomes are fixed:
// the hours queries land near the hours pattern while the joke stays
// below every threshold.
var engineVectors = map[string][]float32{
	"store hours":           {1, 0},
	"when do you open":      {0.8, 0.2},
	"where are you located": {0, 1},
	"what are your hours":   {0.9, 0.1},
	"tell me a joke":        {-0.7, -0.7},
}

func engineProvider(t *testing.T) ai.Provider {
	t.Helper()

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 2
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		v, ok := engineVectors[text]
		if !ok {
			return nil, fmt.Errorf("no test vector for %q", text)
		}
		return v, nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			v, ok := engineVectors[text]
			if !ok {
				return nil, fmt.Errorf("no test vector for %q", text)
			}
			out[i] = v
		}
		return out, nil
	}

	return mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()

	provider := engineProvider(t)
	opts = append([]EngineOption{
		WithInMemorySessions(),
		WithProvider(provider),
		WithEmbedderFactory(func(string) (ai.Embedder, error) {
			return provider.Embedder(), nil
		}),
	}, opts...)

	engine, err := NewEngine(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func buildTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()

	engine := newTestEngine(t, opts...)
	dir := t.TempDir()
	intentPath := filepath.Join(dir, "intents.json")
	require.NoError(t, os.WriteFile(intentPath, []byte(engineIntents), 0644))
	require.NoError(t, engine.BuildBundle(context.Background(), intentPath, filepath.Join(dir, "bundle")))
	return engine
}

func TestEngine_BuildAndLoadBundle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	intentPath := filepath.Join(dir, "intents.json")
	bundleDir := filepath.Join(dir, "bundle")
	require.NoError(t, os.WriteFile(intentPath, []byte(engineIntents), 0644))

	builder := newTestEngine(t)
	require.NoError(t, builder.BuildBundle(ctx, intentPath, bundleDir))

	stats := builder.Stats()
	assert.True(t, stats.Loaded)
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 2, stats.Dimension)

	// A second engine loads the same bundle from disk.
	loader := newTestEngine(t)
	assert.False(t, loader.Stats().Loaded)
	require.NoError(t, loader.LoadBundle(bundleDir))
	assert.Equal(t, stats, loader.Stats())
}

func TestEngine_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("direct match skips generation", func(t *testing.T) {
		provider := engineProvider(t)
		engine := buildTestEngine(t, WithProvider(provider))

		sessionID, err := engine.NewSession(ctx)
		require.NoError(t, err)

		gen := provider.(*mock.MockProvider).GetMockGenerator()
		reply, err := engine.Respond(ctx, sessionID, "store hours")
		require.NoError(t, err)
		assert.Equal(t, "We are open 9-5.", reply)
		assert.Zero(t, gen.CallCount())
	})

	t.Run("unmatched query goes through generation", func(t *testing.T) {
		engine := buildTestEngine(t)
		sessionID, err := engine.NewSession(ctx)
		require.NoError(t, err)

		reply, err := engine.Respond(ctx, sessionID, "tell me a joke")
		require.NoError(t, err)
		assert.Equal(t, "generated reply to: tell me a joke", reply)
	})

	t.Run("turns are persisted", func(t *testing.T) {
		engine := buildTestEngine(t)
		sessionID, err := engine.NewSession(ctx)
		require.NoError(t, err)

		_, err = engine.Respond(ctx, sessionID, "store hours")
		require.NoError(t, err)

		turns, err := engine.Sessions().Turns(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, core.SpeakerUser, turns[0].Speaker)
		assert.Equal(t, "store hours", turns[0].Content)
		assert.Equal(t, core.SpeakerAssistant, turns[1].Speaker)
		assert.Equal(t, "We are open 9-5.", turns[1].Content)
	})

	t.Run("history reaches the generator", func(t *testing.T) {
		provider := engineProvider(t)
		var captured []ai.Message
		provider.(*mock.MockProvider).GetMockGenerator().GenerateFunc =
			func(ctx context.Context, system string, history []ai.Message, userMessage string) (string, error) {
				captured = history
				return "ok", nil
			}

		engine := buildTestEngine(t, WithProvider(provider))
		sessionID, err := engine.NewSession(ctx)
		require.NoError(t, err)

		_, err = engine.Respond(ctx, sessionID, "tell me a joke")
		require.NoError(t, err)
		assert.Empty(t, captured)

		_, err = engine.Respond(ctx, sessionID, "tell me a joke")
		require.NoError(t, err)
		require.Len(t, captured, 2)
		assert.Equal(t, ai.RoleUser, captured[0].Role)
		assert.Equal(t, "tell me a joke", captured[0].Content)
		assert.Equal(t, ai.RoleAssistant, captured[1].Role)
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		engine := buildTestEngine(t)
		_, err := engine.Respond(ctx, core.ID(99999), "store hours")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("unloaded engine rejected", func(t *testing.T) {
		engine := newTestEngine(t)
		sessionID, err := engine.NewSession(ctx)
		require.NoError(t, err)

		_, err = engine.Respond(ctx, sessionID, "store hours")
		assert.ErrorIs(t, err, core.ErrNotLoaded)
	})
}

func TestEngine_MatcherAccess(t *testing.T) {
	engine := buildTestEngine(t)
	ctx := context.Background()

	tag, err := engine.Matcher().GetIntentTag(ctx, "what are your hours")
	require.NoError(t, err)
	assert.Equal(t, "hours_info", tag)

	assert.InDelta(t, match.DefaultThreshold, engine.Matcher().Threshold(), 1e-9)
}
