package schema

import "errors"

var (
	// ErrNameRequired indicates a shape without a name.
	ErrNameRequired = errors.New("schema name is required")

	// ErrUnknownShape indicates a lookup for a shape that is not registered.
	ErrUnknownShape = errors.New("unknown entity type")

	// ErrRegistryRequired indicates a watcher built without a registry.
	ErrRegistryRequired = errors.New("schema registry is required")

	// ErrDirRequired indicates a watcher built without a directory.
	ErrDirRequired = errors.New("schema directory is required")
)
