package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single self-overwriting progress line.
type ProgressTracker struct {
	mu           sync.Mutex
	w            io.Writer
	unit         string
	total        int
	done         int
	every        int
	lastReported int
	started      time.Time
}

// NewProgressTracker reports to w every `every` units, naming them unit
// ("entities", "facts").
func NewProgressTracker(w io.Writer, unit string, total, every int) *ProgressTracker {
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{w: w, unit: unit, total: total, every: every}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = time.Now()
	p.done = 0
	p.lastReported = 0
}

// Add records n more processed units.
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.IsZero() {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.lastReported >= p.every {
		p.report()
		p.lastReported = p.done
	}
}

// Finish writes the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.IsZero() {
		return
	}
	p.done = p.total
	p.report()
	fmt.Fprintln(p.w)
}

// Elapsed is the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.IsZero() {
		return 0
	}
	return time.Since(p.started)
}

func (p *ProgressTracker) report() {
	elapsed := time.Since(p.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "\rProgress: %d/%d %s (%.1f%%) - %.1f %s/s", p.done, p.total, p.unit, pct, rate, p.unit)
}
