package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/poiesic/recollect/schema"
)

const (
	statusURI            = "recollect://status"
	entityScheme         = "entity://"
	entityInstructScheme = "entity_instruction://"
	entityListURI        = entityScheme + "list"
	jsonMIME             = "application/json"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Description: "Server health, store connectivity and ingestion queue state",
		MIMEType:    jsonMIME,
	}, s.handleStatusResource)

	s.server.AddResource(&mcp.Resource{
		URI:         entityListURI,
		Name:        "Available Entities",
		Description: "List of all available entity types in the knowledge graph",
		MIMEType:    jsonMIME,
	}, s.handleEntityListResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: entityScheme + "{name}",
		Name:        "Entity Schema",
		Description: "Schema and structure of an entity type",
		MIMEType:    jsonMIME,
	}, s.handleEntitySchemaResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: entityInstructScheme + "{name}",
		Name:        "Entity Usage Instructions",
		Description: "Usage guide and examples for an entity type",
		MIMEType:    jsonMIME,
	}, s.handleEntityInstructionResource)
}

type queueInfo struct {
	GroupID       string `json:"group_id"`
	Pending       int    `json:"pending"`
	WorkerRunning bool   `json:"worker_running"`
	Busy          bool   `json:"busy"`
}

type statusInfo struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Namespace string      `json:"namespace,omitempty"`
	Queues    []queueInfo `json:"queues,omitempty"`
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.engine == nil {
		return jsonResult(req.Params.URI, statusInfo{Status: "error", Message: ErrNotInitialized.Error()})
	}

	st := s.engine.Status(ctx)
	info := statusInfo{Namespace: st.Namespace}
	if st.Healthy() {
		info.Status = "ok"
		info.Message = "recollect MCP server is running and connected to the store"
	} else {
		s.logger.Error("error checking store", "err", st.StoreErr)
		info.Status = "error"
		info.Message = fmt.Sprintf("recollect MCP server is running but the store check failed: %v", st.StoreErr)
	}
	for _, q := range st.Queues {
		info.Queues = append(info.Queues, queueInfo{
			GroupID:       q.Namespace,
			Pending:       q.Pending,
			WorkerRunning: q.WorkerRunning,
			Busy:          q.Busy,
		})
	}
	return jsonResult(req.Params.URI, info)
}

func (s *Server) handleEntityListResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	names := []string{}
	if s.engine != nil {
		names = s.engine.Schemas().Names()
	}
	return jsonResult(req.Params.URI, map[string]any{
		"entities":    names,
		"total":       len(names),
		"instruction": "Use entity://[entityName] to get the schema and entity_instruction://[entityName] for usage examples",
	})
}

func (s *Server) handleEntitySchemaResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	shape, err := s.lookupShape(req.Params.URI, entityScheme)
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, map[string]any{
		"name":        shape.Name,
		"description": shape.Description,
		"schema":      shapeSchema(shape),
	})
}

func (s *Server) handleEntityInstructionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	shape, err := s.lookupShape(req.Params.URI, entityInstructScheme)
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, map[string]any{
		"name":          shape.Name,
		"instructions":  shape.Instructions,
		"when_to_use":   shape.WhenToUse,
		"examples":      shape.Examples,
		"relationships": shape.Relationships,
	})
}

func (s *Server) lookupShape(uri, scheme string) (schema.Shape, error) {
	name := extractName(uri, scheme)
	if name == "" || s.engine == nil {
		return schema.Shape{}, mcp.ResourceNotFoundError(uri)
	}
	shape, err := s.engine.Schemas().Get(name)
	if errors.Is(err, schema.ErrUnknownShape) {
		return schema.Shape{}, mcp.ResourceNotFoundError(uri)
	}
	return shape, err
}

// extractName returns the entity name from a URI like entity://Name.
func extractName(uri, scheme string) string {
	if !strings.HasPrefix(uri, scheme) {
		return ""
	}
	name := strings.TrimPrefix(uri, scheme)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}

// shapeSchema returns the shape's JSON schema, deriving one from its
// fields when none was declared.
func shapeSchema(shape schema.Shape) map[string]any {
	if shape.Schema != nil {
		return shape.Schema
	}
	props := make(map[string]any, len(shape.Fields))
	required := []string{}
	for _, f := range shape.Fields {
		typ := f.Type
		if typ == "" {
			typ = "string"
		}
		prop := map[string]any{"type": typ}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.Default != "" {
			prop["default"] = f.Default
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(data),
		}},
	}, nil
}
