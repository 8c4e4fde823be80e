package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/guard"
	"github.com/poiesic/recollect/ingestion"
	"github.com/poiesic/recollect/search"
)

// DefaultLastN is how many episodes get_episodes returns by default.
const DefaultLastN = 10

// AddEpisodeInput is the input schema for add_episode.
type AddEpisodeInput struct {
	Name              string   `json:"name" jsonschema:"name of the episode"`
	EpisodeBody       any      `json:"episode_body" jsonschema:"episode content: a string or an object with a narrative and entities"`
	GroupID           string   `json:"group_id,omitempty" jsonschema:"graph namespace for the episode (default global)"`
	Format            string   `json:"format,omitempty" jsonschema:"how to interpret the body: text or message or json (default text)"`
	SourceDescription string   `json:"source_description,omitempty" jsonschema:"description of where the content came from"`
	UUID              string   `json:"uuid,omitempty" jsonschema:"optional UUID for the episode"`
	EntitySubset      []string `json:"entity_subset,omitempty" jsonschema:"entity types to extract (default all)"`
}

// MessageOutput is the output of tools that only report an outcome.
type MessageOutput struct {
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
}

// SearchNodesInput is the input schema for search_nodes.
type SearchNodesInput struct {
	Query          string   `json:"query" jsonschema:"the search query"`
	GroupIDs       []string `json:"group_ids,omitempty" jsonschema:"namespaces to search (default [global])"`
	MaxNodes       int      `json:"max_nodes,omitempty" jsonschema:"maximum number of nodes to return (default 10)"`
	CenterNodeUUID string   `json:"center_node_uuid,omitempty" jsonschema:"UUID of a node to center the search around"`
	Entity         string   `json:"entity,omitempty" jsonschema:"only return nodes of this entity type"`
}

// NodeSearchOutput is the output schema for search_nodes.
type NodeSearchOutput struct {
	Message string       `json:"message"`
	Nodes   []NodeResult `json:"nodes"`
}

// SearchFactsInput is the input schema for search_facts.
type SearchFactsInput struct {
	Query          string   `json:"query" jsonschema:"the search query"`
	GroupIDs       []string `json:"group_ids,omitempty" jsonschema:"namespaces to search (default [global])"`
	MaxFacts       int      `json:"max_facts,omitempty" jsonschema:"maximum number of facts to return (default 10)"`
	CenterNodeUUID string   `json:"center_node_uuid,omitempty" jsonschema:"UUID of a node to center the search around"`
}

// FactSearchOutput is the output schema for search_facts.
type FactSearchOutput struct {
	Message string       `json:"message"`
	Facts   []FactResult `json:"facts"`
}

// GetEpisodesInput is the input schema for get_episodes.
type GetEpisodesInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"namespace to read from (default global)"`
	LastN   int    `json:"last_n,omitempty" jsonschema:"number of most recent episodes (default 10)"`
}

// EpisodesOutput is the output schema for get_episodes.
type EpisodesOutput struct {
	Message  string          `json:"message"`
	Episodes []EpisodeResult `json:"episodes"`
}

// UUIDInput names a single record.
type UUIDInput struct {
	UUID string `json:"uuid" jsonschema:"UUID of the record"`
}

// ClearGraphInput is the input schema for clear_graph.
type ClearGraphInput struct {
	Auth string `json:"auth,omitempty" jsonschema:"the authorization code followed by _DELETE_THIS_GRAPH"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "add_episode",
		Description: "Add an episode to the knowledge graph. The episode is processed in the background; " +
			"episodes of one group_id are processed in order. Object bodies and strings starting with '{' are treated as json.",
	}, s.handleAddEpisode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_nodes",
		Description: "Search the knowledge graph for relevant entity nodes.",
	}, s.handleSearchNodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_facts",
		Description: "Search the knowledge graph for relevant facts (relationships between entities).",
	}, s.handleSearchFacts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_episodes",
		Description: "Get the most recent episodes of a group.",
	}, s.handleGetEpisodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_entity_edge",
		Description: "Get a fact (entity edge) by its UUID.",
	}, s.handleGetEntityEdge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_entity_edge",
		Description: "Delete a fact (entity edge) by its UUID.",
	}, s.handleDeleteEntityEdge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_episode",
		Description: "Delete an episode by its UUID.",
	}, s.handleDeleteEpisode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "clear_graph",
		Description: "Clear ALL data from the knowledge graph and rebuild indices. CAUTION: destructive. " +
			"Call once without auth to get an authorization code, ask the user for explicit permission, " +
			"then call again with auth set to '<code>_DELETE_THIS_GRAPH'.",
	}, s.handleClearGraph)
}

func (s *Server) handleAddEpisode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddEpisodeInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	var gateway *ingestion.Gateway
	if s.engine != nil {
		gateway = s.engine.Gateway()
	}
	ack, err := gateway.Submit(ctx, ingestion.Submission{
		Name:              input.Name,
		Namespace:         input.GroupID,
		Body:              input.EpisodeBody,
		Format:            input.Format,
		SourceDescription: input.SourceDescription,
		UUID:              input.UUID,
		SchemaSubset:      input.EntitySubset,
	})
	if err != nil {
		s.logger.Error("error queuing episode", "episode", input.Name, "err", err)
		return nil, MessageOutput{}, fmt.Errorf("error queuing episode task: %w", err)
	}
	return nil, MessageOutput{
		Message:  ack.Message,
		Position: ack.Position,
		UUID:     ack.UUID,
		GroupID:  ack.Namespace,
	}, nil
}

func (s *Server) handleSearchNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchNodesInput,
) (*mcp.CallToolResult, NodeSearchOutput, error) {
	if s.engine == nil {
		return nil, NodeSearchOutput{}, ErrNotInitialized
	}
	results, err := s.engine.Searcher().SearchNodes(ctx, search.NodeQuery{
		Query:          input.Query,
		Namespaces:     input.GroupIDs,
		MaxNodes:       input.MaxNodes,
		CenterNodeUUID: input.CenterNodeUUID,
		EntityLabel:    strings.TrimSpace(input.Entity),
	}, nil)
	if err != nil {
		s.logger.Error("error searching nodes", "err", err)
		return nil, NodeSearchOutput{}, fmt.Errorf("error searching nodes: %w", err)
	}

	out := NodeSearchOutput{Nodes: make([]NodeResult, 0, len(results))}
	for _, r := range results {
		out.Nodes = append(out.Nodes, formatNode(r.Entity, r.Score))
	}
	if len(out.Nodes) == 0 {
		out.Message = "No relevant nodes found"
	} else {
		out.Message = "Nodes retrieved successfully"
	}
	return nil, out, nil
}

func (s *Server) handleSearchFacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchFactsInput,
) (*mcp.CallToolResult, FactSearchOutput, error) {
	if s.engine == nil {
		return nil, FactSearchOutput{}, ErrNotInitialized
	}
	results, err := s.engine.Searcher().SearchFacts(ctx, search.FactQuery{
		Query:          input.Query,
		Namespaces:     input.GroupIDs,
		MaxFacts:       input.MaxFacts,
		CenterNodeUUID: input.CenterNodeUUID,
	}, nil)
	if err != nil {
		s.logger.Error("error searching facts", "err", err)
		return nil, FactSearchOutput{}, fmt.Errorf("error searching facts: %w", err)
	}

	store := s.engine.Store()
	out := FactSearchOutput{Facts: make([]FactResult, 0, len(results))}
	for _, r := range results {
		out.Facts = append(out.Facts, formatFact(ctx, store, r.Fact, r.Score))
	}
	if len(out.Facts) == 0 {
		out.Message = "No relevant facts found"
	} else {
		out.Message = "Facts retrieved successfully"
	}
	return nil, out, nil
}

func (s *Server) handleGetEpisodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetEpisodesInput,
) (*mcp.CallToolResult, EpisodesOutput, error) {
	if s.engine == nil {
		return nil, EpisodesOutput{}, ErrNotInitialized
	}
	namespace := input.GroupID
	if namespace == "" {
		namespace = core.DefaultNamespace
	}
	lastN := input.LastN
	if lastN <= 0 {
		lastN = DefaultLastN
	}

	episodes, err := s.engine.Store().RecentEpisodes(ctx, namespace, lastN)
	if err != nil {
		s.logger.Error("error getting episodes", "err", err)
		return nil, EpisodesOutput{}, fmt.Errorf("error getting episodes: %w", err)
	}

	out := EpisodesOutput{Episodes: make([]EpisodeResult, 0, len(episodes))}
	for _, ep := range episodes {
		out.Episodes = append(out.Episodes, formatEpisode(ep))
	}
	if len(out.Episodes) == 0 {
		out.Message = fmt.Sprintf("No episodes found for group %s", namespace)
	} else {
		out.Message = "Episodes retrieved successfully"
	}
	return nil, out, nil
}

func (s *Server) handleGetEntityEdge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UUIDInput,
) (*mcp.CallToolResult, FactResult, error) {
	if s.engine == nil {
		return nil, FactResult{}, ErrNotInitialized
	}
	store := s.engine.Store()
	f, err := store.GetFact(ctx, core.IDFromUUID(input.UUID))
	if err != nil {
		s.logger.Error("error getting entity edge", "uuid", input.UUID, "err", err)
		return nil, FactResult{}, fmt.Errorf("error getting entity edge: %w", err)
	}
	return nil, formatFact(ctx, store, f, 0), nil
}

func (s *Server) handleDeleteEntityEdge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UUIDInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	if s.engine == nil {
		return nil, MessageOutput{}, ErrNotInitialized
	}
	if err := s.engine.Store().DeleteFact(ctx, core.IDFromUUID(input.UUID)); err != nil {
		s.logger.Error("error deleting entity edge", "uuid", input.UUID, "err", err)
		return nil, MessageOutput{}, fmt.Errorf("error deleting entity edge: %w", err)
	}
	return nil, MessageOutput{Message: fmt.Sprintf("Entity edge with UUID %s deleted successfully", input.UUID)}, nil
}

func (s *Server) handleDeleteEpisode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UUIDInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	if s.engine == nil {
		return nil, MessageOutput{}, ErrNotInitialized
	}
	if err := s.engine.Store().DeleteEpisode(ctx, core.IDFromUUID(input.UUID)); err != nil {
		s.logger.Error("error deleting episode", "uuid", input.UUID, "err", err)
		return nil, MessageOutput{}, fmt.Errorf("error deleting episode: %w", err)
	}
	return nil, MessageOutput{Message: fmt.Sprintf("Episode with UUID %s deleted successfully", input.UUID)}, nil
}

// handleClearGraph returns the gate's refusals as tool errors. Their text
// carries the next authorization code.
func (s *Server) handleClearGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClearGraphInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	if s.engine == nil {
		return nil, MessageOutput{}, ErrNotInitialized
	}
	msg, err := s.engine.Gate().Reset(ctx, input.Auth)
	if err != nil {
		if guard.IsKind(err, guard.KindResetFailed) {
			s.logger.Error("error clearing graph", "err", err)
		}
		return nil, MessageOutput{}, err
	}
	return nil, MessageOutput{Message: msg}, nil
}
