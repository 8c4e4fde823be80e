package reembed

import (
	"context"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

const (
	// DefaultBatchSize is the default number of records per batch
	DefaultBatchSize = 100
)

// target is one kind of record that carries a vector.
type target[T any] struct {
	unit      string
	count     func(ctx context.Context) (int, error)
	forEach   func(ctx context.Context, batchSize int, fn func([]T) error) error
	text      func(T) string
	setVector func(T, []float32)
	update    func(ctx context.Context, items ...T) error
}

func entityTarget(store storage.Store) target[*core.Entity] {
	return target[*core.Entity]{
		unit:      "entities",
		count:     store.CountEntities,
		forEach:   store.ForEachEntity,
		text:      (*core.Entity).EmbeddingText,
		setVector: func(e *core.Entity, v []float32) { e.Vector = v },
		update:    store.UpdateEntities,
	}
}

func factTarget(store storage.Store) target[*core.Fact] {
	return target[*core.Fact]{
		unit:      "facts",
		count:     store.CountFacts,
		forEach:   store.ForEachFact,
		text:      (*core.Fact).EmbeddingText,
		setVector: func(f *core.Fact, v []float32) { f.Vector = v },
		update:    store.UpdateFacts,
	}
}
