package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel replays canned responses in order.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
	lastMsgs  []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lastMsgs = messages
	if m.err != nil {
		return nil, m.err
	}
	i := min(m.calls, len(m.responses)-1)
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.responses[i]}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func TestExtract_ParsesAndCleans(t *testing.T) {
	model := &scriptedModel{responses: []string{"```json\n" + `{
		"entities": [
			{"name": "Alice", "type": "Preference", "summary": "likes tea", "attributes": {"category": "tools"}},
			{"name": "tea", "type": "Beverage"},
			{"name": "alice", "type": "Entity"},
			{"name": "  ", "type": "Entity"}
		],
		"facts": [
			{"source": "Alice", "target": "tea", "relation": "prefers strongly", "fact": "Alice prefers tea"},
			{"source": "Alice", "target": "Bob", "relation": "KNOWS", "fact": "Alice knows Bob"},
		]
	}` + "\n```"}}
	e := newExtractorWithModel(model, 3, slog.Default())

	out, err := e.Extract(context.Background(), ai.ExtractionRequest{
		Name:    "chat",
		Content: "Alice prefers tea",
		Format:  core.FormatText,
		Schemas: map[string]schema.Shape{"Preference": {Name: "Preference", Description: "a preference"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Entities, 2)
	assert.Equal(t, "Preference", out.Entities[0].Type)
	assert.Equal(t, ai.GenericEntityType, out.Entities[1].Type, "unknown types fall back to the generic type")
	require.Len(t, out.Facts, 1, "facts with unknown endpoints are dropped")
	assert.Equal(t, "PREFERS_STRONGLY", out.Facts[0].Relation)

	system := model.lastMsgs[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, system, "## Preference")
	user := model.lastMsgs[1].Parts[0].(llms.TextContent).Text
	assert.True(t, strings.HasPrefix(user, "Episode: chat\n"))
}

func TestExtract_RetriesMalformedJSON(t *testing.T) {
	model := &scriptedModel{responses: []string{"not json at all", `{"entities": [], "facts": []}`}}
	e := newExtractorWithModel(model, 3, slog.Default())

	out, err := e.Extract(context.Background(), ai.ExtractionRequest{Content: "hello"})
	require.NoError(t, err)
	assert.Empty(t, out.Entities)
	assert.Equal(t, 2, model.calls)
}

func TestExtract_GivesUp(t *testing.T) {
	model := &scriptedModel{responses: []string{"{{{"}}
	e := newExtractorWithModel(model, 2, slog.Default())

	_, err := e.Extract(context.Background(), ai.ExtractionRequest{Content: "hello"})
	assert.Error(t, err)
	assert.Equal(t, 2, model.calls)
}

func TestExtract_ModelError(t *testing.T) {
	boom := errors.New("connection refused")
	e := newExtractorWithModel(&scriptedModel{err: boom}, 3, slog.Default())

	_, err := e.Extract(context.Background(), ai.ExtractionRequest{Content: "hello"})
	assert.ErrorIs(t, err, boom)
}

func TestBuildSystemPrompt_NoSchemas(t *testing.T) {
	p := buildSystemPrompt(nil)
	assert.Contains(t, p, "must be one of: Entity.")
	assert.NotContains(t, p, "Entity types (")
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", `{"a": 1}`, `{"a": 1}`},
		{"missing opening quote", `{"a": 1, b": 2}`, `{"a": 1, "b": 2}`},
		{"trailing comma in object", `{"a": 1,}`, `{"a": 1}`},
		{"trailing comma in array", `{"a": [1, 2, ]}`, `{"a": [1, 2 ]}`},
		{"comma inside string kept", `{"a": "x,}"}`, `{"a": "x,}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestRelationName(t *testing.T) {
	assert.Equal(t, "WORKS_AT", relationName("works at"))
	assert.Equal(t, "WORKS_AT", relationName("WORKS_AT"))
	assert.Equal(t, "IS_PART_OF", relationName(" is-part-of "))
	assert.Equal(t, "", relationName("  "))
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)

	_, err = NewProvider(nil)
	assert.ErrorIs(t, err, ai.ErrNotInitialized)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
	require.NoError(t, err)
	defer p.Close()
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Extractor())
}
