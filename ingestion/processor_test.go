package ingestion

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/schema"
	"github.com/poiesic/recollect/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestProcessor(t *testing.T, schemas *schema.Registry) (*Processor, *badger.Store, *mock.MockProvider) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider()
	p, err := NewProcessor(store, provider, schemas, WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, store, provider
}

func builtinRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry(schema.Builtins())
	require.NoError(t, err)
	return r
}

func newTestTask(namespace, name, content string, format core.EpisodeFormat, subset ...string) Task {
	return NewTask(namespace, name, "uuid-"+name, content, format, "test", subset, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestNewProcessor_Guards(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = NewProcessor(nil, mock.NewMockProvider(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewProcessor(store, nil, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestProcessor_WritesGraph(t *testing.T) {
	p, store, provider := setupTestProcessor(t, nil)
	ctx := context.Background()

	require.NoError(t, p.Execute(ctx, newTestTask("ns", "meeting", "Alice met Bob at Acme", core.FormatText)))
	assert.Equal(t, 1, provider.GetMockExtractor().CallCount())

	episodes, err := store.RecentEpisodes(ctx, "ns", 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "uuid-meeting", episodes[0].UUID)
	assert.Len(t, episodes[0].Vector, mock.Dimensions)
	assert.True(t, episodes[0].ReferenceTime.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))

	entities, err := store.ListEntities(ctx, "ns", "")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	for _, e := range entities {
		assert.NotEmpty(t, e.Vector, e.Name)
		assert.Equal(t, []core.ID{episodes[0].Id}, e.EpisodeIds)
	}

	alice := core.IDFromUUID(core.EntityUUID("ns", ai.GenericEntityType, "Alice"))
	factIDs, err := store.FactsForEntity(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, factIDs, 2)

	stats, err := store.NamespaceStats(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.EpisodeCount)
}

func TestProcessor_StructuredEpisode(t *testing.T) {
	p, store, provider := setupTestProcessor(t, builtinRegistry(t))
	var seen ai.ExtractionRequest
	provider.GetMockExtractor().ExtractFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
		seen = req
		return &ai.Extraction{
			Entities: []ai.ExtractedEntity{
				{Name: "Alice", Type: ai.GenericEntityType, Summary: "engineer"},
				{Name: "Green tea", Type: ai.GenericEntityType, Summary: "extracted summary"},
			},
			Facts: []ai.ExtractedFact{{Source: "Alice", Target: "green tea", Relation: "prefers", Fact: "Alice prefers green tea"}},
		}, nil
	}

	body := `{
		"narrative": "Alice said she always drinks green tea.",
		"entities": [
			{"type": "Preference", "name": "Green tea", "person": "Alice", "category": "tools", "preference": "green tea"}
		]
	}`
	require.NoError(t, p.Execute(context.Background(), newTestTask("ns", "chat", body, core.FormatJSON)))

	assert.Equal(t, "Alice said she always drinks green tea.", seen.Content)
	assert.ElementsMatch(t, []string{"Preference", "Procedure", "Requirement"}, slices.Collect(maps.Keys(seen.Schemas)))

	prefs, err := store.ListEntities(context.Background(), "ns", "Preference")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	tea := prefs[0]
	assert.Equal(t, "Green tea", tea.Name)
	assert.Equal(t, "moderate", tea.Attributes["strength"], "defaults are filled in")
	assert.Equal(t, "extracted summary", tea.Summary)

	facts, err := store.FactsForEntity(context.Background(), tea.Id)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	fact, err := store.GetFact(context.Background(), facts[0])
	require.NoError(t, err)
	assert.Equal(t, "PREFERS", fact.Relation)
}

func TestProcessor_ValidationFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		field   string
		invalid bool
	}{
		{name: "malformed json", body: `{"narrative": `, field: "episode_body", invalid: true},
		{name: "unknown type", body: `{"entities": [{"type": "Spaceship", "name": "x"}]}`, field: "entities[0].type"},
		{name: "missing type", body: `{"entities": [{"name": "x"}]}`, field: "entities[0].type"},
		{name: "missing required", body: `{"entities": [{"type": "Procedure", "name": "deploy"}]}`, field: "entities[0].description"},
		{name: "extra field", body: `{"entities": [{"type": "Procedure", "name": "deploy", "description": "d", "color": "red"}]}`, field: "entities[0].color"},
		{name: "entities not a list", body: `{"entities": {"type": "Procedure"}}`, field: "entities"},
		{name: "narrative not a string", body: `{"narrative": 42}`, field: "narrative"},
		{name: "narrative not a string with entities", body: `{"narrative": ["x"], "entities": []}`, field: "narrative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, provider := setupTestProcessor(t, builtinRegistry(t))

			err := p.Execute(context.Background(), newTestTask("ns", "bad", tt.body, core.FormatJSON))
			var verr *ai.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Issues)
			assert.Equal(t, tt.field, verr.Issues[0].Field)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidStructuredContent))
			assert.Zero(t, provider.GetMockExtractor().CallCount())

			episodes, err := store.RecentEpisodes(context.Background(), "ns", 10)
			require.NoError(t, err)
			assert.Empty(t, episodes)
		})
	}
}

func TestProcessor_JSONWithoutObjectIsExtracted(t *testing.T) {
	p, store, _ := setupTestProcessor(t, nil)
	require.NoError(t, p.Execute(context.Background(), newTestTask("ns", "list", `["Alice", "Bob"]`, core.FormatJSON)))

	episodes, err := store.RecentEpisodes(context.Background(), "ns", 1)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, core.FormatJSON, episodes[0].Format)
}

func TestProcessor_SchemaSubset(t *testing.T) {
	p, _, provider := setupTestProcessor(t, builtinRegistry(t))
	var seen map[string]schema.Shape
	provider.GetMockExtractor().ExtractFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
		seen = req.Schemas
		return &ai.Extraction{}, nil
	}

	require.NoError(t, p.Execute(context.Background(), newTestTask("ns", "e", "hello", core.FormatText, "Preference", "Missing")))
	assert.Equal(t, []string{"Preference"}, slices.Collect(maps.Keys(seen)))
}

func TestProcessor_SchemasResolvedAtExecution(t *testing.T) {
	registry := builtinRegistry(t)
	p, _, provider := setupTestProcessor(t, registry)
	var seen map[string]schema.Shape
	provider.GetMockExtractor().ExtractFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
		seen = req.Schemas
		return &ai.Extraction{}, nil
	}

	queued := newTestTask("ns", "e", "hello", core.FormatText)
	registry.Replace([]schema.Shape{{Name: "Incident", Description: "An outage"}})

	require.NoError(t, p.Execute(context.Background(), queued))
	assert.Equal(t, []string{"Incident"}, slices.Collect(maps.Keys(seen)))
}

func TestProcessor_Failures(t *testing.T) {
	t.Run("extractor error", func(t *testing.T) {
		p, _, provider := setupTestProcessor(t, nil)
		boom := errors.New("model offline")
		provider.GetMockExtractor().ExtractFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
			return nil, boom
		}
		err := p.Execute(context.Background(), newTestTask("ns", "e", "Alice", core.FormatText))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrFatal)
	})

	t.Run("embedder error", func(t *testing.T) {
		p, store, provider := setupTestProcessor(t, nil)
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding quota")
		}
		err := p.Execute(context.Background(), newTestTask("ns", "e", "Alice met Bob", core.FormatText))
		assert.ErrorContains(t, err, "embedding quota")

		episodes, err := store.RecentEpisodes(context.Background(), "ns", 1)
		require.NoError(t, err)
		assert.Empty(t, episodes)
	})

	t.Run("embedder panic", func(t *testing.T) {
		p, store, provider := setupTestProcessor(t, nil)
		provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			panic("embedder blew up")
		}
		err := p.Execute(context.Background(), newTestTask("ns", "e", "Alice met Bob", core.FormatText))
		require.Error(t, err)
		assert.ErrorContains(t, err, "embedding panicked: embedder blew up")

		episodes, err := store.RecentEpisodes(context.Background(), "ns", 1)
		require.NoError(t, err)
		assert.Empty(t, episodes)
	})

	t.Run("closed store is fatal", func(t *testing.T) {
		p, store, _ := setupTestProcessor(t, nil)
		require.NoError(t, store.Close())
		err := p.Execute(context.Background(), newTestTask("ns", "e", "Alice", core.FormatText))
		assert.ErrorIs(t, err, ErrFatal)
	})
}

// Submitting E1 then E2 to one namespace runs them in order while F1 in
// another namespace runs independently.
func TestEngineScenario_OrderPerNamespace(t *testing.T) {
	p, store, _ := setupTestProcessor(t, nil)
	rec := newRecorder()
	g, _ := newTestGateway(t, ExecutorFunc(func(ctx context.Context, task Task) error {
		if err := p.Execute(ctx, task); err != nil {
			return err
		}
		rec.record(task)
		return nil
	}))

	ctx := context.Background()
	_, err := g.Submit(ctx, Submission{Name: "E1", Namespace: "ns-a", Body: "Alice joined Acme"})
	require.NoError(t, err)
	_, err = g.Submit(ctx, Submission{Name: "E2", Namespace: "ns-a", Body: "Alice left Acme"})
	require.NoError(t, err)
	_, err = g.Submit(ctx, Submission{Name: "F1", Namespace: "ns-b", Body: "Bob joined Initech"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 3 }, 5*time.Second, 10*time.Millisecond)
	require.NotZero(t, rec.order("E1"))
	assert.Less(t, rec.order("E1"), rec.order("E2"))

	a, err := store.RecentEpisodes(ctx, "ns-a", 10)
	require.NoError(t, err)
	assert.Len(t, a, 2)
	b, err := store.RecentEpisodes(ctx, "ns-b", 10)
	require.NoError(t, err)
	assert.Len(t, b, 1)
}
