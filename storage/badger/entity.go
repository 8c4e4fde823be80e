package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// GetEntity retrieves a single entity by ID.
func (s *Store) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// ListEntities returns every entity in a namespace, optionally filtered by label.
func (s *Store) ListEntities(ctx context.Context, namespace, label string) ([]*core.Entity, error) {
	var results []*core.Entity
	err := s.backend.View(func(tx *badger.Txn) error {
		entities, err := scanEntities(tx, namespacePrefix(entityNsPrefix, namespace))
		if err != nil {
			return err
		}
		for _, e := range entities {
			if label == "" || e.HasLabel(label) {
				results = append(results, e)
			}
		}
		return nil
	})
	return results, err
}

// FindSimilarEntities scores entities in the given namespaces against vector.
// No namespaces means every namespace.
func (s *Store) FindSimilarEntities(ctx context.Context, namespaces []string, vector []float32, minSimilarity float32, limit int, label string) ([]*core.EntityResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrVectorRequired
	}

	var results []*core.EntityResult
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, prefix := range scopePrefixes(entityPrefix, entityNsPrefix, namespaces) {
			entities, err := scanEntities(tx, prefix)
			if err != nil {
				return err
			}
			for _, e := range entities {
				if len(e.Vector) == 0 {
					continue
				}
				if label != "" && !e.HasLabel(label) {
					continue
				}
				similarity := dotProduct(vector, e.Vector)
				if similarity >= minSimilarity {
					results = append(results, &core.EntityResult{Entity: e, Score: similarity})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byScoreDesc(results, func(r *core.EntityResult) float32 { return r.Score }, limit), nil
}

// ForEachEntity calls fn with batches of every stored entity.
// The read transaction is closed before fn runs, so fn may write.
func (s *Store) ForEachEntity(ctx context.Context, batchSize int, fn func([]*core.Entity) error) error {
	var all []*core.Entity
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		all, err = scanEntities(tx, []byte(entityPrefix))
		return err
	})
	if err != nil {
		return err
	}
	return inBatches(ctx, all, batchSize, fn)
}

// CountEntities returns the number of stored entities.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	var count int
	err := s.backend.View(func(tx *badger.Txn) error {
		count = countPrefix(tx, []byte(entityPrefix))
		return nil
	})
	return count, err
}

// UpdateEntities rewrites existing entities in place.
func (s *Store) UpdateEntities(ctx context.Context, entities ...*core.Entity) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		ts := now()
		for _, e := range entities {
			old, err := readEntity(tx, e.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			if old.Namespace != e.Namespace {
				if err := tx.Delete(makeEntityNsKey(old.Namespace, e.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeEntityNsKey(e.Namespace, e.Id), storage.MarshalID(e.Id)); err != nil {
					return err
				}
			}
			e.UpdatedAt = ts
			if err := tx.Set(makeEntityKey(e.Id), storage.MarshalEntity(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

// readEntity returns nil, nil when the entity doesn't exist.
func readEntity(tx *badger.Txn, id core.ID) (*core.Entity, error) {
	item, err := tx.Get(makeEntityKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e *core.Entity
	err = item.Value(func(val []byte) error {
		e, err = storage.UnmarshalEntity(val)
		return err
	})
	return e, err
}

// scanEntities reads the entities under prefix. The prefix is either the
// primary entity prefix or a namespace index prefix.
func scanEntities(tx *badger.Txn, prefix []byte) ([]*core.Entity, error) {
	var out []*core.Entity
	primary := string(prefix) == entityPrefix
	err := scanPrefix(tx, prefix, func(_, val []byte) error {
		if primary {
			e, err := storage.UnmarshalEntity(val)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		}
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		e, err := readEntity(tx, id)
		if err != nil {
			return err
		}
		if e != nil {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// deleteEntity removes an entity, its namespace index and every fact touching it.
func deleteEntity(tx *badger.Txn, e *core.Entity) error {
	factIDs, err := factIDsForEntity(tx, e.Id)
	if err != nil {
		return err
	}
	for _, fid := range factIDs {
		f, err := readFact(tx, fid)
		if err != nil {
			return err
		}
		if f != nil {
			if err := deleteFact(tx, f); err != nil {
				return err
			}
		}
	}
	if err := tx.Delete(makeEntityNsKey(e.Namespace, e.Id)); err != nil {
		return err
	}
	return tx.Delete(makeEntityKey(e.Id))
}

// scopePrefixes returns the primary prefix when no namespaces are given,
// otherwise one namespace index prefix per namespace.
func scopePrefixes(primary, nsIndex string, namespaces []string) [][]byte {
	if len(namespaces) == 0 {
		return [][]byte{[]byte(primary)}
	}
	out := make([][]byte, 0, len(namespaces))
	seen := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		if seen[ns] {
			continue
		}
		seen[ns] = true
		out = append(out, namespacePrefix(nsIndex, ns))
	}
	return out
}

func inBatches[T any](ctx context.Context, all []T, batchSize int, fn func([]T) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	for i := 0; i < len(all); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+batchSize, len(all))
		if err := fn(all[i:end]); err != nil {
			return err
		}
	}
	return nil
}
