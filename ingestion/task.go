package ingestion

import (
	"slices"
	"time"

	"github.com/poiesic/recollect/core"
)

// Task is one queued episode. Tasks are values: the worker receives a copy
// and nothing else holds a reference to it.
type Task struct {
	Namespace         string
	Name              string
	UUID              string
	Content           string
	Format            core.EpisodeFormat
	SourceDescription string
	SubmittedAt       time.Time

	// schemaSubset restricts extraction to the named entity types.
	// Empty means every registered type.
	schemaSubset []string
}

// SchemaSubset returns a copy of the entity types the task is restricted to.
func (t Task) SchemaSubset() []string {
	return slices.Clone(t.schemaSubset)
}

// NewTask builds a task. The subset slice is copied.
func NewTask(namespace, name, uuid, content string, format core.EpisodeFormat, sourceDescription string, subset []string, submittedAt time.Time) Task {
	return Task{
		Namespace:         namespace,
		Name:              name,
		UUID:              uuid,
		Content:           content,
		Format:            format,
		SourceDescription: sourceDescription,
		SubmittedAt:       submittedAt,
		schemaSubset:      slices.Clone(subset),
	}
}
