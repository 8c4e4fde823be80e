package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *badger.Store
	searcher *Searcher
	alice    *core.Entity
	bob      *core.Entity
	acme     *core.Entity
}

func embed(t *testing.T, text string) []float32 {
	t.Helper()
	v, err := mock.NewMockEmbedder().EmbedText(context.Background(), text)
	require.NoError(t, err)
	return v
}

func entity(t *testing.T, ns, label, name, summary string) *core.Entity {
	uuid := core.EntityUUID(ns, label, name)
	e := &core.Entity{
		Id:         core.IDFromUUID(uuid),
		UUID:       uuid,
		Name:       name,
		Namespace:  ns,
		Labels:     []string{"Entity", label},
		Summary:    summary,
		Attributes: map[string]string{},
	}
	e.Vector = embed(t, e.EmbeddingText())
	return e
}

func fact(t *testing.T, src, dst *core.Entity, relation, statement string) *core.Fact {
	uuid := core.FactUUID(src.Namespace, src.Id, relation, dst.Id)
	f := &core.Fact{
		Id:        core.IDFromUUID(uuid),
		UUID:      uuid,
		Namespace: src.Namespace,
		Relation:  relation,
		Fact:      statement,
		SourceId:  src.Id,
		TargetId:  dst.Id,
	}
	f.Vector = embed(t, f.EmbeddingText())
	return f
}

func setupFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	searcher, err := NewSearcher(store, mock.NewMockProvider(), opts...)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		searcher: searcher,
		alice:    entity(t, core.DefaultNamespace, "Person", "Alice", ""),
		bob:      entity(t, core.DefaultNamespace, "Person", "Bob", ""),
		acme:     entity(t, core.DefaultNamespace, "Organization", "Acme", ""),
	}
	episode := &core.Episode{
		UUID:      "ep-1",
		Name:      "standup",
		Namespace: core.DefaultNamespace,
		Content:   "Alice works with Bob at Acme",
		Format:    core.FormatText,
	}
	facts := []*core.Fact{
		fact(t, f.alice, f.bob, "WORKS_WITH", "Alice works with Bob"),
		fact(t, f.bob, f.acme, "WORKS_AT", "Bob works at Acme"),
	}
	require.NoError(t, store.WriteEpisode(context.Background(), episode, []*core.Entity{f.alice, f.bob, f.acme}, facts))
	return f
}

func TestNewSearcher(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(store, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearchNodes_EmptyQuery(t *testing.T) {
	f := setupFixture(t)
	_, err := f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "  "}, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = f.searcher.SearchFacts(context.Background(), FactQuery{}, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchNodes_ExactMatchFirst(t *testing.T) {
	f := setupFixture(t)
	results, err := f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "Alice"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Alice", results[0].Entity.Name)
	assert.InDelta(t, 1.0+verbatimBoost, results[0].Score, 1e-4)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchNodes_Limit(t *testing.T) {
	f := setupFixture(t, WithMinSimilarity(-1))
	results, err := f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "Bob", MaxNodes: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchNodes_LabelAndNamespace(t *testing.T) {
	f := setupFixture(t, WithMinSimilarity(-1))
	ctx := context.Background()

	other := entity(t, "elsewhere", "Person", "Alice", "")
	require.NoError(t, f.store.WriteEpisode(ctx, &core.Episode{
		UUID: "ep-2", Name: "other", Namespace: "elsewhere", Content: "Alice", Format: core.FormatText,
	}, []*core.Entity{other}, nil))

	results, err := f.searcher.SearchNodes(ctx, NodeQuery{Query: "Acme", EntityLabel: "Organization"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme", results[0].Entity.Name)

	results, err = f.searcher.SearchNodes(ctx, NodeQuery{Query: "Alice", Namespaces: []string{"elsewhere"}}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "elsewhere", results[0].Entity.Namespace)

	results, err = f.searcher.SearchNodes(ctx, NodeQuery{Query: "Alice"}, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, core.DefaultNamespace, r.Entity.Namespace)
	}
}

func scoresByName(results []*core.EntityResult) map[string]float32 {
	out := make(map[string]float32, len(results))
	for _, r := range results {
		out[r.Entity.Name] = r.Score
	}
	return out
}

func TestSearchNodes_CenterBoost(t *testing.T) {
	f := setupFixture(t, WithMinSimilarity(-1))
	ctx := context.Background()

	plain, err := f.searcher.SearchNodes(ctx, NodeQuery{Query: "quarterly planning"}, nil)
	require.NoError(t, err)
	centered, err := f.searcher.SearchNodes(ctx, NodeQuery{Query: "quarterly planning", CenterNodeUUID: f.alice.UUID}, nil)
	require.NoError(t, err)

	before, after := scoresByName(plain), scoresByName(centered)
	assert.InDelta(t, before["Bob"]+centerBoost, after["Bob"], 1e-5, "Bob shares a fact with Alice")
	assert.InDelta(t, before["Alice"]+centerBoost, after["Alice"], 1e-5)
	assert.InDelta(t, before["Acme"], after["Acme"], 1e-5, "Acme is two hops away")
}

func TestSearchNodes_UnknownCenterIgnored(t *testing.T) {
	f := setupFixture(t)
	results, err := f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "Alice", CenterNodeUUID: "no-such-entity"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice", results[0].Entity.Name)
}

func TestSearchFacts(t *testing.T) {
	f := setupFixture(t, WithMinSimilarity(-1))
	ctx := context.Background()

	results, err := f.searcher.SearchFacts(ctx, FactQuery{Query: "Bob works at Acme"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "WORKS_AT", results[0].Fact.Relation)
	assert.InDelta(t, 1.0+verbatimBoost, results[0].Score, 1e-4)

	plain, err := f.searcher.SearchFacts(ctx, FactQuery{Query: "holiday schedule"}, nil)
	require.NoError(t, err)
	centered, err := f.searcher.SearchFacts(ctx, FactQuery{Query: "holiday schedule", CenterNodeUUID: f.acme.UUID}, nil)
	require.NoError(t, err)

	score := func(rs []*core.FactResult, rel string) float32 {
		for _, r := range rs {
			if r.Fact.Relation == rel {
				return r.Score
			}
		}
		return -100
	}
	assert.InDelta(t, score(plain, "WORKS_AT")+centerBoost, score(centered, "WORKS_AT"), 1e-5)
	assert.InDelta(t, score(plain, "WORKS_WITH"), score(centered, "WORKS_WITH"), 1e-5)
}

type countingMonitor struct {
	noopMonitor
	starts, finishes, verbatim, neighbors int
}

func (m *countingMonitor) Start(_, _ string)     { m.starts++ }
func (m *countingMonitor) Finish(_ int)          { m.finishes++ }
func (m *countingMonitor) VerbatimHit(_ core.ID) { m.verbatim++ }
func (m *countingMonitor) NeighborHit(_ core.ID) { m.neighbors++ }

func TestSearch_Monitor(t *testing.T) {
	f := setupFixture(t)
	m := &countingMonitor{}
	_, err := f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "Alice", CenterNodeUUID: f.alice.UUID}, m)
	require.NoError(t, err)
	assert.Equal(t, 1, m.starts)
	assert.Equal(t, 1, m.finishes)
	assert.Equal(t, 1, m.verbatim)
	assert.GreaterOrEqual(t, m.neighbors, 1)

	_, err = f.searcher.SearchNodes(context.Background(), NodeQuery{Query: "Alice"}, &LogMonitor{})
	require.NoError(t, err)
}
