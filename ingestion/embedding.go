package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/poiesic/recollect/core"
)

// embedGraph fills in the vectors of an episode and its entities and facts.
// The three embedding calls run concurrently on the processor's pool.
func (p *Processor) embedGraph(ctx context.Context, episode *core.Episode, entities []*core.Entity, facts []*core.Fact) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	submit := func(job func() error) {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			// Pool goroutines are outside the worker's recover.
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("embedding panicked: %v", r))
				}
			}()
			if err := job(); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting embedding job: %w", err))
		}
	}

	submit(func() error {
		vec, err := p.embedder.EmbedText(ctx, episode.Content)
		if err != nil {
			return fmt.Errorf("episode: %w", err)
		}
		episode.Vector = vec
		return nil
	})

	if len(entities) > 0 {
		submit(func() error {
			texts := make([]string, len(entities))
			for i, e := range entities {
				texts[i] = e.EmbeddingText()
			}
			vectors, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return fmt.Errorf("entities: %w", err)
			}
			if len(vectors) != len(entities) {
				return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(entities), len(vectors))
			}
			for i := range vectors {
				entities[i].Vector = vectors[i]
			}
			return nil
		})
	}

	if len(facts) > 0 {
		submit(func() error {
			texts := make([]string, len(facts))
			for i, f := range facts {
				texts[i] = f.EmbeddingText()
			}
			vectors, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return fmt.Errorf("facts: %w", err)
			}
			if len(vectors) != len(facts) {
				return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(facts), len(vectors))
			}
			for i := range vectors {
				facts[i].Vector = vectors[i]
			}
			return nil
		})
	}

	wg.Wait()
	return errors.Join(errs...)
}
