package search

import (
	"log/slog"

	"github.com/poiesic/recollect/core"
)

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(kind, query string)
	AfterSemanticSearch(ids []core.ID)
	AfterNeighborhood(center core.ID, neighbors []core.ID)
	VerbatimHit(id core.ID)
	NeighborHit(id core.ID)
	Finish(hits int)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                        {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)          {}
func (n *noopMonitor) AfterNeighborhood(_ core.ID, _ []core.ID) {}
func (n *noopMonitor) VerbatimHit(_ core.ID)                    {}
func (n *noopMonitor) NeighborHit(_ core.ID)                    {}
func (n *noopMonitor) Finish(_ int)                             {}

// LogMonitor reports each search stage at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

func (m *LogMonitor) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *LogMonitor) Start(kind, query string) {
	m.logger().Debug("search started", "kind", kind, "query", query)
}

func (m *LogMonitor) AfterSemanticSearch(ids []core.ID) {
	m.logger().Debug("semantic candidates", "count", len(ids))
}

func (m *LogMonitor) AfterNeighborhood(center core.ID, neighbors []core.ID) {
	m.logger().Debug("center neighborhood", "center", center, "neighbors", len(neighbors))
}

func (m *LogMonitor) VerbatimHit(id core.ID) {
	m.logger().Debug("verbatim match", "id", id)
}

func (m *LogMonitor) NeighborHit(id core.ID) {
	m.logger().Debug("neighbor of center", "id", id)
}

func (m *LogMonitor) Finish(hits int) {
	m.logger().Debug("search finished", "hits", hits)
}
