package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// GetFact retrieves a single fact by ID.
func (s *Store) GetFact(ctx context.Context, id core.ID) (*core.Fact, error) {
	var result *core.Fact
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = readFact(tx, id)
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

// DeleteFact removes a fact and its indices.
func (s *Store) DeleteFact(ctx context.Context, id core.ID) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		f, err := readFact(tx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return storage.ErrNotFound
		}
		return deleteFact(tx, f)
	})
}

// FindSimilarFacts scores facts in the given namespaces against vector.
// No namespaces means every namespace.
func (s *Store) FindSimilarFacts(ctx context.Context, namespaces []string, vector []float32, minSimilarity float32, limit int) ([]*core.FactResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrVectorRequired
	}

	var results []*core.FactResult
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, prefix := range scopePrefixes(factPrefix, factNsPrefix, namespaces) {
			facts, err := scanFacts(tx, prefix)
			if err != nil {
				return err
			}
			for _, f := range facts {
				if len(f.Vector) == 0 {
					continue
				}
				similarity := dotProduct(vector, f.Vector)
				if similarity >= minSimilarity {
					results = append(results, &core.FactResult{Fact: f, Score: similarity})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byScoreDesc(results, func(r *core.FactResult) float32 { return r.Score }, limit), nil
}

// FactsForEntity returns the IDs of facts with entityID as an endpoint.
func (s *Store) FactsForEntity(ctx context.Context, entityID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		ids, err = factIDsForEntity(tx, entityID)
		return err
	})
	return ids, err
}

// ForEachFact calls fn with batches of every stored fact.
// The read transaction is closed before fn runs, so fn may write.
func (s *Store) ForEachFact(ctx context.Context, batchSize int, fn func([]*core.Fact) error) error {
	var all []*core.Fact
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		all, err = scanFacts(tx, []byte(factPrefix))
		return err
	})
	if err != nil {
		return err
	}
	return inBatches(ctx, all, batchSize, fn)
}

// CountFacts returns the number of stored facts.
func (s *Store) CountFacts(ctx context.Context) (int, error) {
	var count int
	err := s.backend.View(func(tx *badger.Txn) error {
		count = countPrefix(tx, []byte(factPrefix))
		return nil
	})
	return count, err
}

// UpdateFacts rewrites existing facts in place. Endpoints and namespace
// are taken from the stored record.
func (s *Store) UpdateFacts(ctx context.Context, facts ...*core.Fact) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		ts := now()
		for _, f := range facts {
			old, err := readFact(tx, f.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			f.Namespace = old.Namespace
			f.SourceId = old.SourceId
			f.TargetId = old.TargetId
			f.UpdatedAt = ts
			if err := tx.Set(makeFactKey(f.Id), storage.MarshalFact(f)); err != nil {
				return err
			}
		}
		return nil
	})
}

// readFact returns nil, nil when the fact doesn't exist.
func readFact(tx *badger.Txn, id core.ID) (*core.Fact, error) {
	item, err := tx.Get(makeFactKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f *core.Fact
	err = item.Value(func(val []byte) error {
		f, err = storage.UnmarshalFact(val)
		return err
	})
	return f, err
}

// scanFacts reads the facts under prefix, which is either the primary
// fact prefix or a namespace index prefix.
func scanFacts(tx *badger.Txn, prefix []byte) ([]*core.Fact, error) {
	var out []*core.Fact
	primary := string(prefix) == factPrefix
	err := scanPrefix(tx, prefix, func(_, val []byte) error {
		if primary {
			f, err := storage.UnmarshalFact(val)
			if err != nil {
				return err
			}
			out = append(out, f)
			return nil
		}
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		f, err := readFact(tx, id)
		if err != nil {
			return err
		}
		if f != nil {
			out = append(out, f)
		}
		return nil
	})
	return out, err
}

func factIDsForEntity(tx *badger.Txn, entityID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := scanPrefix(tx, idKey(factEntityPrefix, entityID), func(_, val []byte) error {
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func deleteFact(tx *badger.Txn, f *core.Fact) error {
	keys := [][]byte{
		makeFactKey(f.Id),
		makeFactNsKey(f.Namespace, f.Id),
		makeFactEntityKey(f.SourceId, f.Id),
		makeFactEntityKey(f.TargetId, f.Id),
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
