package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/ai/openai"
	"github.com/poiesic/recollect/reembed"
	"github.com/poiesic/recollect/storage/badger"
	"github.com/urfave/cli/v2"
)

const defaultRetryDelay = time.Second

// reembedConfig builds and checks the reembedding settings from flags.
func reembedConfig(c *cli.Context) (*reembed.Config, error) {
	cfg := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		SkipEntities:   c.Bool("skip-entities"),
		SkipFacts:      c.Bool("skip-facts"),
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return nil, fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max-retries must be greater than 0")
	}
	if cfg.SkipEntities && cfg.SkipFacts {
		return nil, fmt.Errorf("skip-entities and skip-facts leave nothing to reembed")
	}
	return cfg, nil
}

func reembedCommand(c *cli.Context) error {
	ctx := c.Context

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	reembedCfg, err := reembedConfig(c)
	if err != nil {
		return err
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingAPIKey(c.String("embedding-api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := badger.Open(dbPath, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	reembedder, err := reembed.NewReembedder(store, embedder, reembedCfg, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	// Vector indices are derived data; rebuild them so searches see the new vectors.
	if err := store.RebuildIndices(ctx); err != nil {
		return fmt.Errorf("failed to rebuild indices: %w", err)
	}
	return nil
}
