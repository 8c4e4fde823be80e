// Package ingestion turns submitted episodes into stored graph data.
//
// Submissions are partitioned by namespace. Each namespace owns an
// unbounded FIFO queue and at most one worker goroutine, started lazily by
// the first submission and removed when it exits. Tasks within a namespace
// run strictly in submission order; different namespaces run independently.
//
// The Gateway normalizes a Submission into an immutable Task, enqueues it
// and returns an Ack carrying the queue position. It never waits for the
// task to run. Failures during execution are logged by the worker and never
// reach the submitter.
//
// The Processor is the production Executor: it resolves the active entity
// schemas when the task runs, extracts entities and facts, embeds them
// concurrently on an ants pool, writes everything to the store, and then
// updates the namespace statistics.
package ingestion
