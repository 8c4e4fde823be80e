package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// now is the store's clock. UTC with microsecond precision, matching
// what survives serialization.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Store implements storage.Store on top of BadgerDB.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store that owns backend.
func NewStore(backend *Backend) *Store {
	return &Store{
		backend: backend,
		logger:  backend.logger,
	}
}

// Open opens (creating if needed) a database directory and returns a Store for it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Ping reports whether the database is still open.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// TouchNamespace bumps the episode counter and last-ingest time of a namespace.
func (s *Store) TouchNamespace(ctx context.Context, namespace string) error {
	if err := core.ValidateNamespace(namespace); err != nil {
		return err
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		stats, err := readNamespaceStats(tx, namespace)
		if err != nil {
			return err
		}
		stats.EpisodeCount++
		stats.LastIngestAt = now()
		return tx.Set(makeNamespaceStatKey(namespace), storage.MarshalNamespaceStats(stats))
	})
}

// NamespaceStats returns the statistics recorded for a namespace.
func (s *Store) NamespaceStats(ctx context.Context, namespace string) (*core.NamespaceStats, error) {
	var stats *core.NamespaceStats
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		stats, err = readNamespaceStats(tx, namespace)
		return err
	})
	return stats, err
}

// Wipe deletes all data in every namespace.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.backend.DropAll(); err != nil {
		return err
	}
	s.logger.Info("database wiped")
	return nil
}

// RebuildIndices drops every secondary index and regenerates it from
// the primary episode, entity and fact records.
func (s *Store) RebuildIndices(ctx context.Context) error {
	if err := s.backend.DropPrefix(secondaryPrefixes...); err != nil {
		return err
	}

	var (
		episodes []*core.Episode
		entities []*core.Entity
		facts    []*core.Fact
	)
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		if episodes, err = scanEpisodes(tx); err != nil {
			return err
		}
		if entities, err = scanEntities(tx, []byte(entityPrefix)); err != nil {
			return err
		}
		facts, err = scanFacts(tx, []byte(factPrefix))
		return err
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.backend.Batch(func(wb *badger.WriteBatch) error {
		for _, ep := range episodes {
			if err := wb.Set(makeEpisodeTimeKey(ep.Namespace, ep.ReferenceTime, ep.Id), storage.MarshalID(ep.Id)); err != nil {
				return err
			}
		}
		for _, e := range entities {
			if err := wb.Set(makeEntityNsKey(e.Namespace, e.Id), storage.MarshalID(e.Id)); err != nil {
				return err
			}
		}
		for _, f := range facts {
			if err := writeFactIndices(wb, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("indices rebuilt",
		"episodes", len(episodes),
		"entities", len(entities),
		"facts", len(facts))
	return nil
}

func readNamespaceStats(tx *badger.Txn, namespace string) (*core.NamespaceStats, error) {
	item, err := tx.Get(makeNamespaceStatKey(namespace))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &core.NamespaceStats{Namespace: namespace}, nil
	}
	if err != nil {
		return nil, err
	}
	var stats *core.NamespaceStats
	err = item.Value(func(val []byte) error {
		stats, err = storage.UnmarshalNamespaceStats(val)
		return err
	})
	return stats, err
}

// indexWriter is satisfied by both *badger.Txn and *badger.WriteBatch.
type indexWriter interface {
	Set(key, val []byte) error
}

func writeFactIndices(w indexWriter, f *core.Fact) error {
	id := storage.MarshalID(f.Id)
	if err := w.Set(makeFactNsKey(f.Namespace, f.Id), id); err != nil {
		return err
	}
	if err := w.Set(makeFactEntityKey(f.SourceId, f.Id), id); err != nil {
		return err
	}
	return w.Set(makeFactEntityKey(f.TargetId, f.Id), id)
}
