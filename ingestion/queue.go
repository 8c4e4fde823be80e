package ingestion

import "sync"

// taskQueue is an unbounded FIFO of tasks for one namespace.
// ready carries at most one pending wake-up for the worker.
type taskQueue struct {
	mu    sync.Mutex
	items []Task
	ready chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{ready: make(chan struct{}, 1)}
}

// push appends a task and returns the new queue length.
func (q *taskQueue) push(t Task) int {
	q.mu.Lock()
	q.items = append(q.items, t)
	n := len(q.items)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return n
}

// pop removes the head task.
func (q *taskQueue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Task{}, false
	}
	t := q.items[0]
	q.items[0] = Task{}
	q.items = q.items[1:]
	return t, true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
