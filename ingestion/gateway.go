package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/recollect/core"
)

// Submission is a caller's request to ingest one episode.
type Submission struct {
	Name      string
	Namespace string // core.DefaultNamespace when empty

	// Body is the episode content. Strings are used as given; any other
	// value is serialized to JSON and the format forced to json.
	Body any

	// Format is a format name: text, message or json. Unknown names are
	// treated as text.
	Format            string
	SourceDescription string
	UUID              string   // generated when empty
	SchemaSubset      []string // entity types to extract; empty means all
}

// Ack acknowledges that a submission was queued. It says nothing about
// whether the episode will be processed successfully.
type Ack struct {
	Message   string
	Position  int
	Namespace string
	UUID      string
}

// Gateway normalizes submissions and hands them to a Registry.
type Gateway struct {
	registry *Registry
	clock    func() time.Time
	logger   *slog.Logger
}

// NewGateway creates a gateway over registry.
func NewGateway(registry *Registry, opts ...Option) (*Gateway, error) {
	if registry == nil {
		return nil, ErrNotInitialized
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		registry: registry,
		clock:    o.clock,
		logger:   o.logger.With("component", "ingestion-gateway"),
	}, nil
}

// Submit queues an episode and returns without waiting for it to run.
func (g *Gateway) Submit(ctx context.Context, sub Submission) (*Ack, error) {
	if g == nil || g.registry == nil {
		return nil, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(sub.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	namespace := sub.Namespace
	if namespace == "" {
		namespace = core.DefaultNamespace
	}
	if err := core.ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	content, format, err := normalize(sub.Body, sub.Format)
	if err != nil {
		return nil, err
	}

	id := sub.UUID
	if id == "" {
		id = uuid.NewString()
	}

	task := NewTask(namespace, name, id, content, format, sub.SourceDescription, sub.SchemaSubset, g.clock())
	position, err := g.registry.Enqueue(namespace, task)
	if err != nil {
		return nil, err
	}
	g.registry.EnsureWorker(namespace)

	g.logger.Debug("episode queued",
		"namespace", namespace,
		"episode", name,
		"uuid", id,
		"format", format,
		"position", position)

	return &Ack{
		Message:   fmt.Sprintf("Episode '%s' queued for processing (position: %d)", name, position),
		Position:  position,
		Namespace: namespace,
		UUID:      id,
	}, nil
}

// normalize turns a submission body into episode content and decides its
// format. A non-string body becomes JSON. A string that looks like a JSON
// object becomes json only when the format is empty or text.
// JSON validity is not checked here; that happens when the task runs.
func normalize(body any, format string) (string, core.EpisodeFormat, error) {
	switch b := body.(type) {
	case nil:
		return "", 0, ErrBodyRequired
	case string:
		f := core.ParseEpisodeFormat(format)
		implicit := format == "" || strings.EqualFold(strings.TrimSpace(format), "text")
		if implicit && strings.HasPrefix(strings.TrimSpace(b), "{") {
			f = core.FormatJSON
		}
		return b, f, nil
	case json.RawMessage:
		return string(b), core.FormatJSON, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
		return string(data), core.FormatJSON, nil
	}
}
