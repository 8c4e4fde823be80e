package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrExecutorRequired is returned when a registry is built without an executor.
	ErrExecutorRequired = errors.New("executor required")

	// ErrNotInitialized is returned by a gateway that has no registry to submit to.
	ErrNotInitialized = errors.New("ingestion engine not initialized")

	// ErrRegistryClosed is returned for submissions after Shutdown.
	ErrRegistryClosed = errors.New("ingestion registry closed")

	// ErrNameRequired is returned for submissions without an episode name.
	ErrNameRequired = errors.New("episode name required")

	// ErrBodyRequired is returned for submissions without a body.
	ErrBodyRequired = errors.New("episode body required")

	// ErrInvalidBody is returned when a structured body cannot be serialized.
	ErrInvalidBody = errors.New("episode body cannot be serialized")

	// ErrInvalidStructuredContent is returned at execution time when a
	// json episode does not parse.
	ErrInvalidStructuredContent = errors.New("episode content is not valid JSON")

	// ErrFatal marks an executor error that must stop the namespace worker.
	// Tasks still queued stay queued until the next submission starts a
	// replacement worker.
	ErrFatal = errors.New("fatal ingestion error")
)
