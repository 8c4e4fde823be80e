package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// DefaultNamespace is used when a caller does not name a namespace.
const DefaultNamespace = "global"

// ID is a unique identifier for stored graph records.
// It is derived from the record's external UUID string.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromUUID maps an external UUID string onto its storage ID.
func IDFromUUID(u string) ID {
	return IDFromContent("uuid:" + u)
}

// EpisodeFormat describes how an episode's content should be interpreted.
type EpisodeFormat int

const (
	// FormatText is unstructured prose.
	FormatText EpisodeFormat = iota + 1
	// FormatMessage is a conversational message, usually "speaker: text".
	FormatMessage
	// FormatJSON is structured data serialized as JSON.
	FormatJSON
)

// String returns the wire name of the format.
func (f EpisodeFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatMessage:
		return "message"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseEpisodeFormat maps a caller-supplied format name onto an EpisodeFormat.
// Matching is case-insensitive. "structured" is accepted as an alias for json.
// Anything unrecognized, including the empty string, is treated as text.
func ParseEpisodeFormat(s string) EpisodeFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "message":
		return FormatMessage
	case "json", "structured":
		return FormatJSON
	default:
		return FormatText
	}
}

// Episode is one unit of ingested content.
type Episode struct {
	Id                ID
	UUID              string
	Name              string
	Namespace         string
	Content           string
	Format            EpisodeFormat
	SourceDescription string
	ReferenceTime     time.Time // When the content was submitted
	InsertedAt        time.Time // When the episode was written to the store
	Vector            []float32 // Embedding of the content (populated by processors)
}

// Entity is a node in the knowledge graph.
// Entities with the same namespace, label and name resolve to the same record.
type Entity struct {
	Id         ID
	UUID       string
	Name       string
	Namespace  string
	Labels     []string
	Summary    string
	Attributes map[string]string
	EpisodeIds []ID
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// HasLabel reports whether the entity carries the given label.
func (e *Entity) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// EmbeddingText is the text an entity's vector is computed from.
func (e *Entity) EmbeddingText() string {
	if e.Summary == "" {
		return e.Name
	}
	return e.Name + ": " + e.Summary
}

// Fact is a directed, described relationship between two entities.
type Fact struct {
	Id         ID
	UUID       string
	Namespace  string
	Relation   string // Short relation name, e.g. "WORKS_AT"
	Fact       string // Natural language statement of the relationship
	SourceId   ID
	TargetId   ID
	EpisodeIds []ID
	Vector     []float32
	ValidAt    time.Time
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// EmbeddingText is the text a fact's vector is computed from.
func (f *Fact) EmbeddingText() string {
	if f.Fact != "" {
		return f.Fact
	}
	return f.Relation
}

// EntityUUID returns the deterministic UUID for an entity identity.
func EntityUUID(namespace, label, name string) string {
	key := namespace + "\x00" + strings.ToLower(label) + "\x00" + strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// FactUUID returns the deterministic UUID for a fact identity.
func FactUUID(namespace string, source ID, relation string, target ID) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(source))
	binary.BigEndian.PutUint64(buf[8:], uint64(target))
	key := namespace + "\x00" + strings.ToUpper(relation) + "\x00" + string(buf[:])
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// NamespaceStats summarizes ingestion activity for a namespace.
type NamespaceStats struct {
	Namespace    string
	EpisodeCount uint64
	LastIngestAt time.Time
}

// EntityResult is an entity search hit.
type EntityResult struct {
	Entity *Entity
	Score  float32
}

// FactResult is a fact search hit.
type FactResult struct {
	Fact  *Fact
	Score float32
}
