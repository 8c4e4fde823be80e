package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/poiesic/recollect/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func decode(t *testing.T, res *mcp.ReadResourceResult) map[string]any {
	t.Helper()
	require.Len(t, res.Contents, 1)
	assert.Equal(t, jsonMIME, res.Contents[0].MIMEType)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	return out
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		scheme string
		want   string
	}{
		{"schema", "entity://Preference", entityScheme, "Preference"},
		{"instruction", "entity_instruction://Procedure", entityInstructScheme, "Procedure"},
		{"wrong scheme", "file://Preference", entityScheme, ""},
		{"nested path", "entity://a/b", entityScheme, ""},
		{"empty", "", entityScheme, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractName(tt.uri, tt.scheme))
		})
	}
}

func TestStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		res, err := s.handleStatusResource(ctx, readRequest(statusURI))
		require.NoError(t, err)
		out := decode(t, res)
		assert.Equal(t, "ok", out["status"])
	})

	t.Run("store closed", func(t *testing.T) {
		s, engine := newTestServer(t, nil)
		require.NoError(t, engine.Store().Close())
		res, err := s.handleStatusResource(ctx, readRequest(statusURI))
		require.NoError(t, err)
		out := decode(t, res)
		assert.Equal(t, "error", out["status"])
		assert.Contains(t, out["message"], "storage is closed")
	})

	t.Run("no engine", func(t *testing.T) {
		res, err := NewServer(nil).handleStatusResource(ctx, readRequest(statusURI))
		require.NoError(t, err)
		assert.Equal(t, "error", decode(t, res)["status"])
	})
}

func TestEntityResources(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ctx := context.Background()

	res, err := s.handleEntityListResource(ctx, readRequest(entityListURI))
	require.NoError(t, err)
	list := decode(t, res)
	assert.ElementsMatch(t, []any{"Preference", "Procedure", "Requirement"}, list["entities"])
	assert.EqualValues(t, 3, list["total"])

	res, err = s.handleEntitySchemaResource(ctx, readRequest("entity://Preference"))
	require.NoError(t, err)
	pref := decode(t, res)
	assert.Equal(t, "Preference", pref["name"])
	sch, ok := pref["schema"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"person", "category", "preference"}, sch["required"])
	assert.Contains(t, sch["properties"], "strength")

	res, err = s.handleEntityInstructionResource(ctx, readRequest("entity_instruction://Preference"))
	require.NoError(t, err)
	instr := decode(t, res)
	assert.NotEmpty(t, instr["when_to_use"])
	assert.NotEmpty(t, instr["instructions"])

	_, err = s.handleEntitySchemaResource(ctx, readRequest("entity://Unicorn"))
	assert.Error(t, err)
	_, err = s.handleEntityInstructionResource(ctx, readRequest("entity_instruction://"))
	assert.Error(t, err)
}

func TestShapeSchema_PrefersDeclaredSchema(t *testing.T) {
	declared := map[string]any{"type": "object", "title": "custom"}
	assert.Equal(t, declared, shapeSchema(schema.Shape{Name: "X", Schema: declared}))
}
