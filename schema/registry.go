package schema

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Registry is the process-wide set of entity types. It is safe for
// concurrent use; readers get copies.
type Registry struct {
	mu     sync.RWMutex
	shapes map[string]Shape
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry holding the given shapes.
func NewRegistry(shapes []Shape, opts ...Option) (*Registry, error) {
	r := &Registry{
		shapes: make(map[string]Shape),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "schema")
	for _, s := range shapes {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces one shape.
func (r *Registry) Register(s Shape) error {
	s.normalize()
	if s.Name == "" {
		return ErrNameRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.shapes[s.Name]; exists {
		r.logger.Debug("replacing entity type", "name", s.Name, "source", s.Source)
	}
	r.shapes[s.Name] = s
	return nil
}

// Replace swaps the whole set atomically. Nameless shapes are skipped.
func (r *Registry) Replace(shapes []Shape) {
	next := make(map[string]Shape, len(shapes))
	for _, s := range shapes {
		s.normalize()
		if s.Name == "" {
			r.logger.Warn("skipping entity type without a name", "source", s.Source)
			continue
		}
		next[s.Name] = s
	}
	r.mu.Lock()
	r.shapes = next
	r.mu.Unlock()
	r.logger.Info("entity types loaded", "count", len(next))
}

// Current returns a copy of every registered shape keyed by name.
func (r *Registry) Current() map[string]Shape {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.shapes)
}

// Subset returns the named shapes. Names that are not registered are
// returned separately so callers can report them.
func (r *Registry) Subset(names []string) (map[string]Shape, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Shape, len(names))
	var missing []string
	for _, n := range names {
		if s, ok := r.shapes[n]; ok {
			out[n] = s
		} else {
			missing = append(missing, n)
		}
	}
	return out, missing
}

// Get returns one shape by name.
func (r *Registry) Get(name string) (Shape, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shapes[name]
	if !ok {
		return Shape{}, fmt.Errorf("%w: %s", ErrUnknownShape, name)
	}
	return s, nil
}

// Names lists the registered shape names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.shapes))
}
