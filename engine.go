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


package recollect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/ai/openai"
	"github.com/poiesic/recollect/config"
	"github.com/poiesic/recollect/guard"
	"github.com/poiesic/recollect/ingestion"
	"github.com/poiesic/recollect/schema"
	"github.com/poiesic/recollect/search"
	"github.com/poiesic/recollect/storage"
	"github.com/poiesic/recollect/storage/badger"
)

// ErrConfigRequired is returned by New without a configuration.
var ErrConfigRequired = errors.New("configuration required")

// Engine owns every long-lived component of a server: the store, the AI
// provider, the entity schemas, the ingestion queues, the reset gate and
// the searcher.
type Engine struct {
	store     storage.Store
	provider  ai.Provider
	schemas   *schema.Registry
	processor *ingestion.Processor
	registry  *ingestion.Registry
	gateway   *ingestion.Gateway
	gate      *guard.Gate
	searcher  *search.Searcher

	namespace       string
	shutdownTimeout time.Duration
	stopWatch       context.CancelFunc
	watchDone       chan struct{}
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	store    storage.Store
	provider ai.Provider
	logger   *slog.Logger
	codeGen  func() string
}

// WithStore uses store instead of opening the configured database.
// The engine takes ownership and closes it.
func WithStore(store storage.Store) Option {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The engine takes ownership and closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithCodeGenerator replaces the reset gate's challenge code source.
func WithCodeGenerator(fn func() string) Option {
	return func(o *engineOptions) {
		o.codeGen = fn
	}
}

// New builds an engine from cfg. The store's indices are rebuilt, after
// wiping everything when cfg.DestroyGraph is set.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (e *Engine, err error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	timeout, _ := cfg.ShutdownTimeout()

	e = &Engine{
		namespace:       cfg.Namespace,
		shutdownTimeout: timeout,
		logger:          o.logger.With("component", "engine"),
	}
	defer func() {
		if err != nil {
			e.closeAll()
			e = nil
		}
	}()

	e.store = o.store
	if e.store == nil {
		if e.store, err = badger.Open(cfg.DBPath, o.logger); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	if cfg.DestroyGraph {
		e.logger.Warn("destroying graph before startup")
		if err = e.store.Wipe(ctx); err != nil {
			return nil, fmt.Errorf("failed to destroy graph: %w", err)
		}
	}
	if err = e.store.RebuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}

	e.provider = o.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProviderWithLogger(cfg.AIConfig(), o.logger); err != nil {
			return nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
	}

	if err = e.loadSchemas(cfg.Entities, o.logger); err != nil {
		return nil, err
	}

	var extractionSchemas *schema.Registry
	if cfg.Entities.UseCustom {
		extractionSchemas = e.schemas
	}
	procOpts := []ingestion.Option{ingestion.WithLogger(o.logger)}
	if cfg.Ingestion.EmbedWorkers > 0 {
		procOpts = append(procOpts, ingestion.WithPoolSize(cfg.Ingestion.EmbedWorkers))
	}
	if e.processor, err = ingestion.NewProcessor(e.store, e.provider, extractionSchemas, procOpts...); err != nil {
		return nil, err
	}
	if e.registry, err = ingestion.NewRegistry(e.processor, ingestion.WithLogger(o.logger)); err != nil {
		return nil, err
	}
	if e.gateway, err = ingestion.NewGateway(e.registry, ingestion.WithLogger(o.logger)); err != nil {
		return nil, err
	}

	gateOpts := []guard.Option{
		guard.WithPrivilegedNamespace(cfg.PrivilegedNamespace),
		guard.WithLogger(o.logger),
	}
	if o.codeGen != nil {
		gateOpts = append(gateOpts, guard.WithCodeGenerator(o.codeGen))
	}
	if e.gate, err = guard.New(e.store, cfg.Namespace, gateOpts...); err != nil {
		return nil, err
	}

	if e.searcher, err = search.NewSearcher(e.store, e.provider, search.WithLogger(o.logger)); err != nil {
		return nil, err
	}

	e.logger.Info("engine ready",
		"namespace", e.namespace,
		"entityTypes", len(e.schemas.Names()),
		"customEntities", cfg.Entities.UseCustom)
	return e, nil
}

// loadSchemas registers the builtin shapes and whatever the schema
// directory holds. A missing directory is logged and skipped.
func (e *Engine) loadSchemas(cfg config.EntitiesConfig, logger *slog.Logger) error {
	var base []schema.Shape
	if cfg.IncludeBuiltin {
		base = schema.Builtins()
	}
	registry, err := schema.NewRegistry(base, schema.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to register entity schemas: %w", err)
	}
	e.schemas = registry

	if cfg.Dir == "" {
		return nil
	}
	if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
		e.logger.Warn("entity directory not found or not a directory", "dir", cfg.Dir)
		return nil
	}

	if !cfg.Watch {
		shapes, err := schema.LoadDir(cfg.Dir, cfg.Include)
		if err != nil {
			e.logger.Warn("some schema files failed to load", "error", err)
		}
		registry.Replace(append(base, shapes...))
		return nil
	}

	watcher, err := schema.NewWatcher(registry, cfg.Dir,
		schema.WithBase(base),
		schema.WithInclude(cfg.Include),
		schema.WithWatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to watch entity directory: %w", err)
	}
	watcher.Reload()

	ctx, cancel := context.WithCancel(context.Background())
	e.stopWatch = cancel
	e.watchDone = make(chan struct{})
	go func() {
		defer close(e.watchDone)
		if err := watcher.Run(ctx); err != nil {
			e.logger.Warn("schema watcher stopped", "error", err)
		}
	}()
	return nil
}

// Namespace is the namespace this server runs as.
func (e *Engine) Namespace() string { return e.namespace }

// Store returns the graph store.
func (e *Engine) Store() storage.Store { return e.store }

// Schemas returns the entity schema registry.
func (e *Engine) Schemas() *schema.Registry { return e.schemas }

// Gateway returns the episode submission gateway.
func (e *Engine) Gateway() *ingestion.Gateway { return e.gateway }

// Queues returns the per-namespace ingestion registry.
func (e *Engine) Queues() *ingestion.Registry { return e.registry }

// Gate returns the graph reset gate.
func (e *Engine) Gate() *guard.Gate { return e.gate }

// Searcher returns the graph searcher.
func (e *Engine) Searcher() *search.Searcher { return e.searcher }

// Status is a point-in-time health report.
type Status struct {
	Namespace string
	StoreErr  error
	Queues    []ingestion.QueueStatus
}

// Healthy reports whether the store answered.
func (s *Status) Healthy() bool { return s.StoreErr == nil }

// Status pings the store and snapshots the ingestion queues.
func (e *Engine) Status(ctx context.Context) *Status {
	return &Status{
		Namespace: e.namespace,
		StoreErr:  e.store.Ping(ctx),
		Queues:    e.registry.Snapshot(),
	}
}

// Close stops ingestion, waiting up to the configured shutdown timeout
// for in-flight episodes, then releases every component.
func (e *Engine) Close() error {
	return e.closeAll()
}

func (e *Engine) closeAll() error {
	var errs []error
	if e.stopWatch != nil {
		e.stopWatch()
		<-e.watchDone
		e.stopWatch = nil
	}
	if e.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
		if err := e.registry.Shutdown(ctx); err != nil {
			e.logger.Error("error stopping ingestion", "err", err)
			errs = append(errs, err)
		}
		cancel()
	}
	if e.processor != nil {
		e.processor.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
