package ingestion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/recollect/ai"
)

// Executor runs one task. Returning an error wrapping ErrFatal stops the
// namespace's worker; any other error is logged and the worker moves on.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task Task) error

// Execute calls f(ctx, task).
func (f ExecutorFunc) Execute(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// QueueStatus describes one namespace's queue.
type QueueStatus struct {
	Namespace     string
	Pending       int  // Tasks waiting, not counting the one being executed
	WorkerRunning bool // A worker is registered for the namespace
	Busy          bool // The worker is executing a task
}

type workerHandle struct {
	id   uint64
	busy atomic.Bool
	done chan struct{}
}

// Registry owns the per-namespace queues and their workers.
// All map mutations happen under one mutex, so at most one worker is ever
// registered for a namespace.
type Registry struct {
	mu         sync.Mutex
	queues     map[string]*taskQueue
	workers    map[string]*workerHandle
	nextWorker uint64
	closed     bool

	exec   Executor
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewRegistry creates a registry whose workers run tasks through exec.
func NewRegistry(exec Executor, opts ...Option) (*Registry, error) {
	if exec == nil {
		return nil, ErrExecutorRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		queues:  make(map[string]*taskQueue),
		workers: make(map[string]*workerHandle),
		exec:    exec,
		ctx:     ctx,
		cancel:  cancel,
		logger:  o.logger.With("component", "ingestion-registry"),
	}, nil
}

// Enqueue appends task to the namespace's queue, creating the queue if
// needed, and returns the queue's new length.
func (r *Registry) Enqueue(namespace string, task Task) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}
	return r.queueLocked(namespace).push(task), nil
}

func (r *Registry) queueLocked(namespace string) *taskQueue {
	q, ok := r.queues[namespace]
	if !ok {
		q = newTaskQueue()
		r.queues[namespace] = q
	}
	return q
}

// EnsureWorker starts a worker for the namespace unless one is already
// registered. It reports whether a worker was started.
func (r *Registry) EnsureWorker(namespace string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, ok := r.workers[namespace]; ok {
		return false
	}

	r.nextWorker++
	h := &workerHandle{id: r.nextWorker, done: make(chan struct{})}
	r.workers[namespace] = h
	q := r.queueLocked(namespace)

	r.wg.Add(1)
	go r.work(namespace, q, h)
	return true
}

// removeWorker unregisters h if it is still the namespace's worker.
func (r *Registry) removeWorker(namespace string, h *workerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers[namespace] == h {
		delete(r.workers, namespace)
	}
}

func (r *Registry) work(namespace string, q *taskQueue, h *workerHandle) {
	logger := r.logger.With("namespace", namespace, "worker", h.id)
	clean := false
	defer func() {
		r.removeWorker(namespace, h)
		close(h.done)
		r.wg.Done()
		if !clean {
			logger.Error("worker exited unexpectedly", "pending", q.len())
		}
	}()

	logger.Debug("worker started")
	for {
		if r.ctx.Err() != nil {
			logger.Debug("worker cancelled", "pending", q.len())
			clean = true
			return
		}

		// busy is raised before the pop so Drain never sees an empty
		// queue while a dequeued task has yet to start.
		h.busy.Store(true)
		task, ok := q.pop()
		if !ok {
			h.busy.Store(false)
			select {
			case <-r.ctx.Done():
			case <-q.ready:
			}
			continue
		}

		if err := r.execute(logger, h, task); err != nil {
			logger.Error("worker stopping", "episode", task.Name, "uuid", task.UUID, "err", err, "pending", q.len())
			clean = true
			return
		}
	}
}

// execute is the per-task error boundary. Only ErrFatal escapes it.
func (r *Registry) execute(logger *slog.Logger, h *workerHandle, task Task) (fatal error) {
	defer h.busy.Store(false)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("episode processing panicked",
				"episode", task.Name,
				"uuid", task.UUID,
				"panic", p,
				"stack", string(debug.Stack()))
		}
	}()

	// The in-flight task finishes even when the registry shuts down.
	ctx := context.WithoutCancel(r.ctx)
	start := time.Now()
	err := r.exec.Execute(ctx, task)

	var verr *ai.ValidationError
	switch {
	case err == nil:
		logger.Info("episode processed", "episode", task.Name, "uuid", task.UUID, "elapsed", time.Since(start))
	case errors.Is(err, ErrFatal):
		return err
	case errors.As(err, &verr):
		logger.Error("episode failed validation", "episode", task.Name, "uuid", task.UUID, "issues", verr.Error())
	default:
		logger.Error("error processing episode", "episode", task.Name, "uuid", task.UUID, "err", err)
	}
	return nil
}

// Status reports the queue state for one namespace.
func (r *Registry) Status(namespace string) QueueStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(namespace)
}

func (r *Registry) statusLocked(namespace string) QueueStatus {
	st := QueueStatus{Namespace: namespace}
	if q, ok := r.queues[namespace]; ok {
		st.Pending = q.len()
	}
	if h, ok := r.workers[namespace]; ok {
		st.WorkerRunning = true
		st.Busy = h.busy.Load()
	}
	return st
}

// Snapshot reports every known namespace, sorted by name.
func (r *Registry) Snapshot() []QueueStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]QueueStatus, 0, len(r.queues))
	for ns := range r.queues {
		out = append(out, r.statusLocked(ns))
	}
	slices.SortFunc(out, func(a, b QueueStatus) int {
		return cmp.Compare(a.Namespace, b.Namespace)
	})
	return out
}

// Drain waits until every queue is empty and no task is executing.
func (r *Registry) Drain(ctx context.Context) error {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		idle := true
		for _, st := range r.Snapshot() {
			if st.Pending > 0 || st.Busy {
				idle = false
				break
			}
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("draining ingestion queues: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Shutdown stops accepting work, cancels every worker and waits for
// in-flight tasks to finish. Queued tasks are discarded.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pending := 0
	for _, q := range r.queues {
		pending += q.len()
	}
	r.mu.Unlock()

	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("ingestion stopped", "discarded", pending)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for ingestion workers: %w", ctx.Err())
	}
}
