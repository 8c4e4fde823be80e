package storage

import (
	"context"

	"github.com/poiesic/recollect/core"
)

// Store persists episodes, entities and facts for every namespace.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	EpisodeStore
	EntityStore
	FactStore
	Maintenance

	// Close closes the storage backend and releases resources.
	Close() error
}

// EpisodeStore provides operations for managing episodes.
type EpisodeStore interface {
	// WriteEpisode stores an episode together with the entities and facts
	// extracted from it in a single transaction.
	// Entities and facts that already exist are merged: summaries and
	// attributes from the new record win, episode references accumulate.
	// Sets InsertedAt/UpdatedAt timestamps.
	WriteEpisode(ctx context.Context, episode *core.Episode, entities []*core.Entity, facts []*core.Fact) error

	// GetEpisode retrieves a single episode by ID.
	// Returns ErrNotFound if the episode doesn't exist.
	GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error)

	// RecentEpisodes returns up to limit episodes from the given namespace,
	// most recently referenced first.
	RecentEpisodes(ctx context.Context, namespace string, limit int) ([]*core.Episode, error)

	// DeleteEpisode removes an episode. Facts that were only supported by
	// this episode are removed with it.
	// Returns ErrNotFound if the episode doesn't exist.
	DeleteEpisode(ctx context.Context, id core.ID) error
}

// EntityStore provides operations for managing entities.
type EntityStore interface {
	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// FindSimilarEntities finds entities in any of the namespaces whose
	// vectors score >= minSimilarity against vector, highest first.
	// An empty label matches every entity.
	FindSimilarEntities(ctx context.Context, namespaces []string, vector []float32, minSimilarity float32, limit int, label string) ([]*core.EntityResult, error)

	// ListEntities returns every entity in the namespace carrying label.
	// An empty label matches every entity.
	ListEntities(ctx context.Context, namespace, label string) ([]*core.Entity, error)

	// ForEachEntity calls fn with batches of every stored entity.
	ForEachEntity(ctx context.Context, batchSize int, fn func([]*core.Entity) error) error

	// CountEntities returns the number of stored entities.
	CountEntities(ctx context.Context) (int, error)

	// UpdateEntities rewrites existing entities.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) error
}

// FactStore provides operations for managing facts.
type FactStore interface {
	// GetFact retrieves a single fact by ID.
	// Returns ErrNotFound if the fact doesn't exist.
	GetFact(ctx context.Context, id core.ID) (*core.Fact, error)

	// DeleteFact removes a fact.
	// Returns ErrNotFound if the fact doesn't exist.
	DeleteFact(ctx context.Context, id core.ID) error

	// FindSimilarFacts finds facts in any of the namespaces whose vectors
	// score >= minSimilarity against vector, highest first.
	FindSimilarFacts(ctx context.Context, namespaces []string, vector []float32, minSimilarity float32, limit int) ([]*core.FactResult, error)

	// FactsForEntity returns the IDs of facts that touch the entity.
	FactsForEntity(ctx context.Context, entityID core.ID) ([]core.ID, error)

	// ForEachFact calls fn with batches of every stored fact.
	ForEachFact(ctx context.Context, batchSize int, fn func([]*core.Fact) error) error

	// CountFacts returns the number of stored facts.
	CountFacts(ctx context.Context) (int, error)

	// UpdateFacts rewrites existing facts.
	// Returns ErrNotFound if any fact doesn't exist.
	UpdateFacts(ctx context.Context, facts ...*core.Fact) error
}

// Maintenance covers whole-store housekeeping.
type Maintenance interface {
	// TouchNamespace records an ingest in the namespace statistics.
	TouchNamespace(ctx context.Context, namespace string) error

	// NamespaceStats returns the statistics for a namespace.
	// A namespace that has never been touched yields zero stats and no error.
	NamespaceStats(ctx context.Context, namespace string) (*core.NamespaceStats, error)

	// Wipe deletes all data in every namespace.
	Wipe(ctx context.Context) error

	// RebuildIndices drops and regenerates every secondary index from the
	// primary records.
	RebuildIndices(ctx context.Context) error

	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
}
