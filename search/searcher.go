package search

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

const (
	// DefaultMaxNodes is used when a NodeQuery does not set MaxNodes.
	DefaultMaxNodes = 10
	// DefaultMaxFacts is used when a FactQuery does not set MaxFacts.
	DefaultMaxFacts = 10
	// DefaultMinSimilarity is the lowest vector score considered a match.
	DefaultMinSimilarity = 0.60

	verbatimBoost = 0.3
	centerBoost   = 0.2
	// candidates are over-fetched so boosts can reorder them
	candidateFactor = 3
)

// Searcher ranks entities and facts against free-text queries.
type Searcher struct {
	store         storage.Store
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the vector score threshold.
// Default is DefaultMinSimilarity.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.Store, provider ai.Provider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		store:         store,
		embedder:      provider.Embedder(),
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// NodeQuery selects entities.
type NodeQuery struct {
	Query      string
	Namespaces []string // empty means core.DefaultNamespace
	MaxNodes   int
	// CenterNodeUUID boosts entities directly related to this entity.
	CenterNodeUUID string
	// EntityLabel restricts results to entities carrying the label.
	EntityLabel string
}

// FactQuery selects facts.
type FactQuery struct {
	Query      string
	Namespaces []string // empty means core.DefaultNamespace
	MaxFacts   int
	// CenterNodeUUID boosts facts that touch this entity.
	CenterNodeUUID string
}

func namespacesOrDefault(ns []string) []string {
	if len(ns) == 0 {
		return []string{core.DefaultNamespace}
	}
	return ns
}

// SearchNodes returns the entities most relevant to q, best first.
func (s *Searcher) SearchNodes(ctx context.Context, q NodeQuery, monitor Monitor) ([]*core.EntityResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(q.Query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.MaxNodes
	if limit <= 0 {
		limit = DefaultMaxNodes
	}
	monitor.Start("nodes", q.Query)

	embedding, err := s.embedder.EmbedText(ctx, q.Query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", q.Query, "err", err)
		return nil, err
	}

	matches, err := s.store.FindSimilarEntities(ctx, namespacesOrDefault(q.Namespaces), embedding, s.minSimilarity, limit*candidateFactor, q.EntityLabel)
	if err != nil {
		s.logger.Error("error querying for similar entities", "err", err)
		return nil, err
	}
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.Entity.Id
	}
	monitor.AfterSemanticSearch(ids)

	neighbors := s.neighborhood(ctx, q.CenterNodeUUID, monitor)

	for _, m := range matches {
		if containsAllQueryWords(entityDocument(m.Entity), q.Query) {
			m.Score += verbatimBoost
			monitor.VerbatimHit(m.Entity.Id)
		}
		if neighbors[m.Entity.Id] {
			m.Score += centerBoost
			monitor.NeighborHit(m.Entity.Id)
		}
	}

	slices.SortStableFunc(matches, func(a, b *core.EntityResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	monitor.Finish(len(matches))
	return matches, nil
}

// SearchFacts returns the facts most relevant to q, best first.
func (s *Searcher) SearchFacts(ctx context.Context, q FactQuery, monitor Monitor) ([]*core.FactResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(q.Query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.MaxFacts
	if limit <= 0 {
		limit = DefaultMaxFacts
	}
	monitor.Start("facts", q.Query)

	embedding, err := s.embedder.EmbedText(ctx, q.Query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", q.Query, "err", err)
		return nil, err
	}

	matches, err := s.store.FindSimilarFacts(ctx, namespacesOrDefault(q.Namespaces), embedding, s.minSimilarity, limit*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar facts", "err", err)
		return nil, err
	}
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.Fact.Id
	}
	monitor.AfterSemanticSearch(ids)

	var center core.ID
	if q.CenterNodeUUID != "" {
		center = core.IDFromUUID(q.CenterNodeUUID)
	}

	for _, m := range matches {
		if containsAllQueryWords(m.Fact.Fact+" "+m.Fact.Relation, q.Query) {
			m.Score += verbatimBoost
			monitor.VerbatimHit(m.Fact.Id)
		}
		if center != 0 && (m.Fact.SourceId == center || m.Fact.TargetId == center) {
			m.Score += centerBoost
			monitor.NeighborHit(m.Fact.Id)
		}
	}

	slices.SortStableFunc(matches, func(a, b *core.FactResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	monitor.Finish(len(matches))
	return matches, nil
}

// neighborhood returns the center entity and every entity sharing a fact
// with it. An unknown center yields an empty set.
func (s *Searcher) neighborhood(ctx context.Context, centerUUID string, monitor Monitor) map[core.ID]bool {
	if centerUUID == "" {
		return nil
	}
	center := core.IDFromUUID(centerUUID)
	factIDs, err := s.store.FactsForEntity(ctx, center)
	if err != nil {
		s.logger.Warn("failed to load center node facts", "center", centerUUID, "err", err)
		return nil
	}

	set := map[core.ID]bool{center: true}
	neighbors := make([]core.ID, 0, len(factIDs))
	for _, id := range factIDs {
		f, err := s.store.GetFact(ctx, id)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("failed to load fact", "fact", id, "err", err)
			}
			continue
		}
		for _, other := range []core.ID{f.SourceId, f.TargetId} {
			if !set[other] {
				set[other] = true
				neighbors = append(neighbors, other)
			}
		}
	}
	monitor.AfterNeighborhood(center, neighbors)
	return set
}

func entityDocument(e *core.Entity) string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString(" ")
	b.WriteString(e.Summary)
	for _, v := range e.Attributes {
		b.WriteString(" ")
		b.WriteString(v)
	}
	return b.String()
}
