// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// SkipEntities and SkipFacts leave that kind of record untouched.
	SkipEntities bool
	SkipFacts    bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder recomputes the vectors of every entity and fact in a store.
type Reembedder struct {
	store    storage.Store
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.Store, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembedder"),
	}, nil
}

// Run re-embeds entities, then facts.
func (r *Reembedder) Run(ctx context.Context) error {
	if !r.config.SkipEntities {
		if err := run(ctx, r, entityTarget(r.store)); err != nil {
			return err
		}
	}
	if !r.config.SkipFacts {
		if err := run(ctx, r, factTarget(r.store)); err != nil {
			return err
		}
	}
	return nil
}

func run[T any](ctx context.Context, r *Reembedder, tgt target[T]) error {
	total, err := tgt.count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", tgt.unit, err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No %s found in database (0 %s)\n", tgt.unit, tgt.unit)
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d %s (batch size: %d)\n", total, tgt.unit, r.config.BatchSize)

	proc := &batchProcessor[T]{
		target:   tgt,
		embedder: r.embedder,
		backoff:  Backoff{Attempts: r.config.MaxRetries, BaseDelay: r.config.RetryDelay, MaxDelay: 30 * time.Second},
		logger:   r.logger,
	}
	tracker := NewProgressTracker(r.progress, tgt.unit, total, r.config.ReportInterval)
	tracker.Start()

	err = tgt.forEach(ctx, r.config.BatchSize, func(batch []T) error {
		if err := proc.process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(batch))
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d %s in %v (%.1f %s/sec)\n",
		total, tgt.unit, elapsed.Round(time.Second), float64(total)/elapsed.Seconds(), tgt.unit)
	return nil
}
