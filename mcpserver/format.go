package mcpserver

import (
	"context"
	"time"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// NodeResult is one entity in a tool response.
type NodeResult struct {
	UUID       string            `json:"uuid"`
	Name       string            `json:"name"`
	Summary    string            `json:"summary"`
	Labels     []string          `json:"labels"`
	GroupID    string            `json:"group_id"`
	CreatedAt  string            `json:"created_at"`
	Attributes map[string]string `json:"attributes"`
	Score      float32           `json:"score,omitempty"`
}

// FactResult is one fact in a tool response.
type FactResult struct {
	UUID           string  `json:"uuid"`
	Name           string  `json:"name"`
	Fact           string  `json:"fact"`
	GroupID        string  `json:"group_id"`
	SourceNodeUUID string  `json:"source_node_uuid"`
	TargetNodeUUID string  `json:"target_node_uuid"`
	CreatedAt      string  `json:"created_at"`
	ValidAt        string  `json:"valid_at,omitempty"`
	Score          float32 `json:"score,omitempty"`
}

// EpisodeResult is one episode in a tool response.
type EpisodeResult struct {
	UUID              string `json:"uuid"`
	Name              string `json:"name"`
	GroupID           string `json:"group_id"`
	Content           string `json:"content"`
	Source            string `json:"source"`
	SourceDescription string `json:"source_description"`
	CreatedAt         string `json:"created_at"`
	ValidAt           string `json:"valid_at"`
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNode(e *core.Entity, score float32) NodeResult {
	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	labels := e.Labels
	if labels == nil {
		labels = []string{}
	}
	return NodeResult{
		UUID:       e.UUID,
		Name:       e.Name,
		Summary:    e.Summary,
		Labels:     labels,
		GroupID:    e.Namespace,
		CreatedAt:  isoTime(e.InsertedAt),
		Attributes: attrs,
		Score:      score,
	}
}

// formatFact resolves the fact's endpoints to entity UUIDs. An endpoint
// that no longer exists is left blank.
func formatFact(ctx context.Context, store storage.Store, f *core.Fact, score float32) FactResult {
	return FactResult{
		UUID:           f.UUID,
		Name:           f.Relation,
		Fact:           f.Fact,
		GroupID:        f.Namespace,
		SourceNodeUUID: entityUUID(ctx, store, f.SourceId),
		TargetNodeUUID: entityUUID(ctx, store, f.TargetId),
		CreatedAt:      isoTime(f.InsertedAt),
		ValidAt:        isoTime(f.ValidAt),
		Score:          score,
	}
}

func entityUUID(ctx context.Context, store storage.Store, id core.ID) string {
	e, err := store.GetEntity(ctx, id)
	if err != nil {
		return ""
	}
	return e.UUID
}

func formatEpisode(ep *core.Episode) EpisodeResult {
	return EpisodeResult{
		UUID:              ep.UUID,
		Name:              ep.Name,
		GroupID:           ep.Namespace,
		Content:           ep.Content,
		Source:            ep.Format.String(),
		SourceDescription: ep.SourceDescription,
		CreatedAt:         isoTime(ep.InsertedAt),
		ValidAt:           isoTime(ep.ReferenceTime),
	}
}
