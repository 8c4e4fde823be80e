package reembed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recollect/ai"
)

// batchProcessor embeds one batch of records and writes them back.
type batchProcessor[T any] struct {
	target   target[T]
	embedder ai.Embedder
	backoff  Backoff
	logger   *slog.Logger
}

// process embeds items and stores the normalized vectors.
func (bp *batchProcessor[T]) process(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = bp.target.text(item)
	}

	var embeddings [][]float32
	err := Retry(ctx, bp.backoff, bp.logger, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.backoff.Attempts, err)
	}

	if len(embeddings) != len(items) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(items), len(embeddings))
	}

	for i, item := range items {
		bp.target.setVector(item, NormalizeVector(embeddings[i]))
	}

	if err := bp.target.update(ctx, items...); err != nil {
		return fmt.Errorf("failed to update %s: %w", bp.target.unit, err)
	}
	return nil
}
