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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Extractor implements ai.Extractor using OpenAI-compatible chat APIs.
type Extractor struct {
	client   llms.Model
	attempts int
	logger   *slog.Logger
}

var _ ai.Extractor = (*Extractor)(nil)

// extraction is the wire shape the model is asked to produce.
type extraction struct {
	Entities []ai.ExtractedEntity `json:"entities"`
	Facts    []ai.ExtractedFact   `json:"facts"`
}

// newExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newExtractor(config *ai.Config, logger *slog.Logger) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return newExtractorWithModel(client, config.ExtractionAttempts, logger), nil
}

func newExtractorWithModel(client llms.Model, attempts int, logger *slog.Logger) *Extractor {
	if attempts < 1 {
		attempts = 1
	}
	return &Extractor{
		client:   client,
		attempts: attempts,
		logger:   logger.With("component", "openai-extractor"),
	}
}

// NewExtractor creates a new extractor using the provided configuration.
//
// Returns ai.Extractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.Extractor, error) {
	return newExtractor(config, slog.Default())
}

// Extract asks the model for the entities and facts in req.Content.
func (e *Extractor) Extract(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt(req.Schemas)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildUserPrompt(req)),
			},
		},
	}

	// Retry in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, ai.ErrEmptyResponse
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))

		result = extraction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", truncate(responseText, 512),
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, fmt.Errorf("extraction response: %w", lastErr)
	}

	out := clean(result, req)
	e.logger.Debug("extracted graph",
		"episode", req.Name,
		"entities", len(out.Entities),
		"facts", len(out.Facts))
	return out, nil
}

// clean drops nameless entities, maps unknown types to the generic type,
// and drops facts whose endpoints were not extracted.
func clean(raw extraction, req ai.ExtractionRequest) *ai.Extraction {
	out := &ai.Extraction{}
	known := make(map[string]bool, len(raw.Entities))
	for _, ent := range raw.Entities {
		ent.Name = strings.TrimSpace(ent.Name)
		if ent.Name == "" {
			continue
		}
		if _, ok := req.Schemas[ent.Type]; !ok {
			ent.Type = ai.GenericEntityType
		}
		key := strings.ToLower(ent.Name)
		if known[key] {
			continue
		}
		known[key] = true
		out.Entities = append(out.Entities, ent)
	}
	for _, f := range raw.Facts {
		if !known[strings.ToLower(strings.TrimSpace(f.Source))] || !known[strings.ToLower(strings.TrimSpace(f.Target))] {
			continue
		}
		f.Relation = relationName(f.Relation)
		if f.Relation == "" {
			continue
		}
		out.Facts = append(out.Facts, f)
	}
	return out
}
