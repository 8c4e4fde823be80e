package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedGraph writes one episode with n entities chained by n-1 facts.
// Vectors are left empty.
func seedGraph(t *testing.T, store *badger.Store, n int) {
	t.Helper()
	ep := &core.Episode{
		UUID:          "episode-1",
		Name:          "seed",
		Namespace:     "test",
		Content:       "seed content",
		Format:        core.FormatText,
		ReferenceTime: time.Now().UTC(),
	}
	entities := make([]*core.Entity, n)
	for i := range entities {
		name := fmt.Sprintf("Entity %d", i)
		entities[i] = &core.Entity{
			UUID:      core.EntityUUID("test", "Entity", name),
			Name:      name,
			Namespace: "test",
			Labels:    []string{"Entity"},
			Summary:   "summary of " + name,
		}
		entities[i].Id = core.IDFromUUID(entities[i].UUID)
	}
	var facts []*core.Fact
	for i := 1; i < n; i++ {
		src, dst := entities[i-1].Id, entities[i].Id
		facts = append(facts, &core.Fact{
			UUID:      core.FactUUID("test", src, "NEXT_TO", dst),
			Namespace: "test",
			Relation:  "NEXT_TO",
			Fact:      fmt.Sprintf("%s is next to %s", entities[i-1].Name, entities[i].Name),
			SourceId:  src,
			TargetId:  dst,
		})
	}
	require.NoError(t, store.WriteEpisode(context.Background(), ep, entities, facts))
}

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}

func assertUnit(t *testing.T, v []float32) {
	t.Helper()
	require.NotEmpty(t, v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 0.001)
}

func TestNewReembedder_Guards(t *testing.T) {
	store := setupTestStore(t)

	_, err := NewReembedder(nil, mock.NewMockEmbedder(), nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewReembedder(store, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	r, err := NewReembedder(store, mock.NewMockEmbedder(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.config.BatchSize)
}

func TestReembedder_Run(t *testing.T) {
	store := setupTestStore(t)
	seedGraph(t, store, 10)
	ctx := context.Background()

	var buf bytes.Buffer
	embedder := mock.NewMockEmbedder()
	r, err := NewReembedder(store, embedder, testConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, r.Run(ctx))

	var entityCount, factCount int
	require.NoError(t, store.ForEachEntity(ctx, 4, func(batch []*core.Entity) error {
		for _, e := range batch {
			assertUnit(t, e.Vector)
			want, err := embedder.EmbedText(ctx, e.EmbeddingText())
			require.NoError(t, err)
			assert.InDeltaSlice(t, NormalizeVector(want), e.Vector, 1e-5)
			entityCount++
		}
		return nil
	}))
	require.NoError(t, store.ForEachFact(ctx, 4, func(batch []*core.Fact) error {
		for _, f := range batch {
			assertUnit(t, f.Vector)
			factCount++
		}
		return nil
	}))
	assert.Equal(t, 10, entityCount)
	assert.Equal(t, 9, factCount)

	out := buf.String()
	assert.Contains(t, out, "10/10 entities")
	assert.Contains(t, out, "9/9 facts")
	assert.Contains(t, out, "Reembedding complete. Processed 10 entities")
	assert.Contains(t, out, "Reembedding complete. Processed 9 facts")
}

func TestReembedder_SkipFacts(t *testing.T) {
	store := setupTestStore(t)
	seedGraph(t, store, 3)

	var buf bytes.Buffer
	cfg := testConfig()
	cfg.SkipFacts = true
	r, err := NewReembedder(store, mock.NewMockEmbedder(), cfg, &buf)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, buf.String(), "entities")
	assert.NotContains(t, buf.String(), "facts")
}

func TestReembedder_EmptyStore(t *testing.T) {
	store := setupTestStore(t)

	var buf bytes.Buffer
	r, err := NewReembedder(store, mock.NewMockEmbedder(), DefaultConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, buf.String(), "0 entities")
	assert.Contains(t, buf.String(), "0 facts")
}

func TestReembedder_RetriesTransientFailure(t *testing.T) {
	store := setupTestStore(t)
	seedGraph(t, store, 2)

	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}

	r, err := NewReembedder(store, embedder, testConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	e, err := store.GetEntity(context.Background(), core.IDFromUUID(core.EntityUUID("test", "Entity", "Entity 0")))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, e.Vector, 1e-6)
}

func TestReembedder_FailsAfterMaxRetries(t *testing.T) {
	store := setupTestStore(t)
	seedGraph(t, store, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}

	r, err := NewReembedder(store, embedder, testConfig(), nil)
	require.NoError(t, err)
	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestReembedder_CountMismatch(t *testing.T) {
	store := setupTestStore(t)
	seedGraph(t, store, 3)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	r, err := NewReembedder(store, embedder, testConfig(), nil)
	require.NoError(t, err)
	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding count mismatch")
}
