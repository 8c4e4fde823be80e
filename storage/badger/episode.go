package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// WriteEpisode stores an episode with its extracted entities and facts in one transaction.
func (s *Store) WriteEpisode(ctx context.Context, episode *core.Episode, entities []*core.Entity, facts []*core.Fact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if episode.Id == 0 {
		episode.Id = core.IDFromUUID(episode.UUID)
	}
	if err := core.ValidateEpisode(episode); err != nil {
		return err
	}
	for _, e := range entities {
		if e.Id == 0 {
			e.Id = core.IDFromUUID(e.UUID)
		}
		if err := core.ValidateEntity(e); err != nil {
			return err
		}
	}
	for _, f := range facts {
		if f.Id == 0 {
			f.Id = core.IDFromUUID(f.UUID)
		}
		if err := core.ValidateFact(f); err != nil {
			return err
		}
	}

	return s.backend.Update(func(tx *badger.Txn) error {
		ts := now()

		old, err := readEpisode(tx, episode.Id)
		if err != nil {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeEpisodeTimeKey(old.Namespace, old.ReferenceTime, old.Id)); err != nil {
				return err
			}
		}
		if episode.ReferenceTime.IsZero() {
			episode.ReferenceTime = ts
		}
		episode.InsertedAt = ts
		if err := tx.Set(makeEpisodeKey(episode.Id), storage.MarshalEpisode(episode)); err != nil {
			return err
		}
		if err := tx.Set(makeEpisodeTimeKey(episode.Namespace, episode.ReferenceTime, episode.Id), storage.MarshalID(episode.Id)); err != nil {
			return err
		}

		for _, e := range entities {
			if err := s.mergeEntity(tx, e, episode.Id, ts); err != nil {
				return fmt.Errorf("entity %q: %w", e.Name, err)
			}
		}
		for _, f := range facts {
			if err := s.mergeFact(tx, f, episode.Id, ts); err != nil {
				return fmt.Errorf("fact %q: %w", f.Relation, err)
			}
		}
		return nil
	})
}

// mergeEntity writes e, folding it into any existing record with the same ID.
func (s *Store) mergeEntity(tx *badger.Txn, e *core.Entity, episodeID core.ID, ts time.Time) error {
	existing, err := readEntity(tx, e.Id)
	if err != nil {
		return err
	}
	e.EpisodeIds = appendUnique(e.EpisodeIds, episodeID)
	if existing == nil {
		e.InsertedAt = ts
	} else {
		e.InsertedAt = existing.InsertedAt
		e.EpisodeIds = appendUnique(existing.EpisodeIds, e.EpisodeIds...)
		for _, l := range existing.Labels {
			if !e.HasLabel(l) {
				e.Labels = append(e.Labels, l)
			}
		}
		if e.Summary == "" {
			e.Summary = existing.Summary
		}
		if len(existing.Attributes) > 0 {
			merged := make(map[string]string, len(existing.Attributes)+len(e.Attributes))
			for k, v := range existing.Attributes {
				merged[k] = v
			}
			for k, v := range e.Attributes {
				merged[k] = v
			}
			e.Attributes = merged
		}
		if len(e.Vector) == 0 {
			e.Vector = existing.Vector
		}
	}
	e.UpdatedAt = ts

	if err := tx.Set(makeEntityKey(e.Id), storage.MarshalEntity(e)); err != nil {
		return err
	}
	return tx.Set(makeEntityNsKey(e.Namespace, e.Id), storage.MarshalID(e.Id))
}

// mergeFact writes f, folding it into any existing record with the same ID.
func (s *Store) mergeFact(tx *badger.Txn, f *core.Fact, episodeID core.ID, ts time.Time) error {
	existing, err := readFact(tx, f.Id)
	if err != nil {
		return err
	}
	f.EpisodeIds = appendUnique(f.EpisodeIds, episodeID)
	if existing == nil {
		f.InsertedAt = ts
	} else {
		f.InsertedAt = existing.InsertedAt
		f.EpisodeIds = appendUnique(existing.EpisodeIds, f.EpisodeIds...)
		if f.Fact == "" {
			f.Fact = existing.Fact
		}
		if len(f.Vector) == 0 {
			f.Vector = existing.Vector
		}
	}
	if f.ValidAt.IsZero() {
		f.ValidAt = ts
	}
	f.UpdatedAt = ts

	if err := tx.Set(makeFactKey(f.Id), storage.MarshalFact(f)); err != nil {
		return err
	}
	return writeFactIndices(tx, f)
}

// GetEpisode retrieves a single episode by ID.
func (s *Store) GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error) {
	var result *core.Episode
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = readEpisode(tx, id)
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

// RecentEpisodes returns the newest episodes of a namespace, newest first.
func (s *Store) RecentEpisodes(ctx context.Context, namespace string, limit int) ([]*core.Episode, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.Episode
	err := s.backend.View(func(tx *badger.Txn) error {
		prefix := namespacePrefix(episodeTimePrefix, namespace)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts at the last key with this prefix
		seek := append(slices.Clone(prefix), 0xFF)
		for iter.Seek(seek); iter.Valid() && len(results) < limit; iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			ep, err := readEpisode(tx, id)
			if err != nil {
				return err
			}
			if ep != nil {
				results = append(results, ep)
			}
		}
		return nil
	})
	return results, err
}

// DeleteEpisode removes an episode. Facts and entities that no remaining
// episode mentions are removed with it.
func (s *Store) DeleteEpisode(ctx context.Context, id core.ID) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		ep, err := readEpisode(tx, id)
		if err != nil {
			return err
		}
		if ep == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(makeEpisodeKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeEpisodeTimeKey(ep.Namespace, ep.ReferenceTime, id)); err != nil {
			return err
		}

		facts, err := scanFacts(tx, namespacePrefix(factNsPrefix, ep.Namespace))
		if err != nil {
			return err
		}
		for _, f := range facts {
			if !slices.Contains(f.EpisodeIds, id) {
				continue
			}
			f.EpisodeIds = slices.DeleteFunc(f.EpisodeIds, func(e core.ID) bool { return e == id })
			if len(f.EpisodeIds) == 0 {
				if err := deleteFact(tx, f); err != nil {
					return err
				}
				continue
			}
			if err := tx.Set(makeFactKey(f.Id), storage.MarshalFact(f)); err != nil {
				return err
			}
		}

		entities, err := scanEntities(tx, namespacePrefix(entityNsPrefix, ep.Namespace))
		if err != nil {
			return err
		}
		for _, e := range entities {
			if !slices.Contains(e.EpisodeIds, id) {
				continue
			}
			e.EpisodeIds = slices.DeleteFunc(e.EpisodeIds, func(x core.ID) bool { return x == id })
			if len(e.EpisodeIds) == 0 {
				if err := deleteEntity(tx, e); err != nil {
					return err
				}
				continue
			}
			if err := tx.Set(makeEntityKey(e.Id), storage.MarshalEntity(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

// readEpisode returns nil, nil when the episode doesn't exist.
func readEpisode(tx *badger.Txn, id core.ID) (*core.Episode, error) {
	item, err := tx.Get(makeEpisodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ep *core.Episode
	err = item.Value(func(val []byte) error {
		ep, err = storage.UnmarshalEpisode(val)
		return err
	})
	return ep, err
}

func scanEpisodes(tx *badger.Txn) ([]*core.Episode, error) {
	var out []*core.Episode
	err := scanPrefix(tx, []byte(episodePrefix), func(_, val []byte) error {
		ep, err := storage.UnmarshalEpisode(val)
		if err != nil {
			return err
		}
		out = append(out, ep)
		return nil
	})
	return out, err
}

// appendUnique appends the ids not already present in dst.
func appendUnique(dst []core.ID, ids ...core.ID) []core.ID {
	for _, id := range ids {
		if !slices.Contains(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}
