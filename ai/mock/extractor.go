package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/poiesic/recollect/ai"
)

// MockExtractor is a test double for ai.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default capitalized word extraction.
	ExtractFunc func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error)

	callCount atomic.Int64
}

// NewMockExtractor creates a mock extractor with default behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract returns mock entities and facts for req.Content.
// Default behavior: every capitalized word becomes a generic entity and the
// first entity is related to each of the others.
func (m *MockExtractor) Extract(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
	m.callCount.Add(1)

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &ai.Extraction{}
	seen := make(map[string]bool)
	for _, word := range strings.Fields(req.Content) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" || !unicode.IsUpper([]rune(word)[0]) || seen[word] {
			continue
		}
		seen[word] = true
		out.Entities = append(out.Entities, ai.ExtractedEntity{
			Name: word,
			Type: ai.GenericEntityType,
		})
	}

	for i := 1; i < len(out.Entities); i++ {
		src, dst := out.Entities[0].Name, out.Entities[i].Name
		out.Facts = append(out.Facts, ai.ExtractedFact{
			Source:   src,
			Target:   dst,
			Relation: "MENTIONED_WITH",
			Fact:     src + " is mentioned with " + dst,
		})
	}
	return out, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractFunc = nil
}
