package ai

import (
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/schema"
)

// ExtractionRequest is the input to an Extractor.
type ExtractionRequest struct {
	Name              string
	Namespace         string
	Content           string
	Format            core.EpisodeFormat
	SourceDescription string

	// Schemas are the entity types the extractor should use, keyed by name.
	Schemas map[string]schema.Shape
}

// Extraction is what an Extractor found in a piece of content.
type Extraction struct {
	Entities []ExtractedEntity
	Facts    []ExtractedFact
}

// ExtractedEntity is an entity mention. Type is a schema name, or
// "Entity" when no schema applies.
type ExtractedEntity struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Summary    string            `json:"summary,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ExtractedFact relates two extracted entities by name.
type ExtractedFact struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Fact     string `json:"fact"`
}

// GenericEntityType labels entities that match no schema.
const GenericEntityType = "Entity"
