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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/schema"
	"github.com/poiesic/recollect/storage"
)

// Processor is the Executor that turns a task into stored graph data.
type Processor struct {
	store     storage.Store
	embedder  ai.Embedder
	extractor ai.Extractor
	schemas   *schema.Registry
	pool      *ants.Pool
	logger    *slog.Logger
}

var _ Executor = (*Processor)(nil)

// NewProcessor creates a processor. schemas may be nil, in which case no
// entity types are offered to the extractor.
func NewProcessor(store storage.Store, provider ai.Provider, schemas *schema.Registry, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}

	return &Processor{
		store:     store,
		embedder:  provider.Embedder(),
		extractor: provider.Extractor(),
		schemas:   schemas,
		pool:      pool,
		logger:    o.logger.With("component", "ingestion-processor"),
	}, nil
}

// Execute processes one episode: schema resolution, structured content
// validation, extraction, embedding, the store write and finally the
// namespace statistics update.
func (p *Processor) Execute(ctx context.Context, task Task) error {
	logger := p.logger.With("namespace", task.Namespace, "episode", task.Name, "uuid", task.UUID)

	// Resolved now rather than at submission so schema reloads apply to
	// work that is already queued.
	shapes := p.resolveSchemas(logger, task.SchemaSubset())

	content := task.Content
	var declared []declaredEntity
	if task.Format == core.FormatJSON {
		structured, err := parseStructured(task.Content, shapes)
		if err != nil {
			return err
		}
		declared = structured.Entities
		if structured.Narrative != "" {
			content = structured.Narrative
		}
	}

	extraction, err := p.extractor.Extract(ctx, ai.ExtractionRequest{
		Name:              task.Name,
		Namespace:         task.Namespace,
		Content:           content,
		Format:            task.Format,
		SourceDescription: task.SourceDescription,
		Schemas:           shapes,
	})
	if err != nil {
		return fmt.Errorf("extracting entities: %w", err)
	}

	episode := &core.Episode{
		Id:                core.IDFromUUID(task.UUID),
		UUID:              task.UUID,
		Name:              task.Name,
		Namespace:         task.Namespace,
		Content:           task.Content,
		Format:            task.Format,
		SourceDescription: task.SourceDescription,
		ReferenceTime:     task.SubmittedAt,
	}
	entities, facts := buildGraph(task.Namespace, episode.Id, declared, extraction)

	if err := p.embedGraph(ctx, episode, entities, facts); err != nil {
		return fmt.Errorf("embedding episode: %w", err)
	}

	if err := p.store.WriteEpisode(ctx, episode, entities, facts); err != nil {
		if errors.Is(err, storage.ErrStorageClosed) {
			return fmt.Errorf("%w: %w", ErrFatal, err)
		}
		return fmt.Errorf("writing episode: %w", err)
	}
	logger.Debug("episode written", "entities", len(entities), "facts", len(facts))

	// Not covered by the write's transaction. The episode stays written.
	if err := p.store.TouchNamespace(ctx, task.Namespace); err != nil {
		logger.Warn("failed to update namespace statistics", "err", err)
	}
	return nil
}

func (p *Processor) resolveSchemas(logger *slog.Logger, subset []string) map[string]schema.Shape {
	if p.schemas == nil {
		return map[string]schema.Shape{}
	}
	if len(subset) == 0 {
		return p.schemas.Current()
	}
	shapes, missing := p.schemas.Subset(subset)
	if len(missing) > 0 {
		logger.Warn("ignoring unknown entity types", "types", missing)
	}
	return shapes
}

// Release releases the embedding pool.
// The processor should not be used after calling Release.
func (p *Processor) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
