// Package reembed recomputes the vectors of every stored entity and fact.
//
// Use it after switching embedding models: vectors from different models
// are not comparable, so search quality collapses until everything has been
// re-embedded. Records are processed in batches; each embedding call is
// retried with exponential backoff and progress is written to an io.Writer.
package reembed
