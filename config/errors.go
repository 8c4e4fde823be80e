package config

import "errors"

var (
	// ErrInvalidTransport is returned for a transport other than stdio or http.
	ErrInvalidTransport = errors.New("transport must be one of stdio, http")

	// ErrInvalidLogLevel is returned for an unknown log level name.
	ErrInvalidLogLevel = errors.New("log level must be one of debug, info, warn, error")

	// ErrDBPathRequired is returned when no database directory is configured.
	ErrDBPathRequired = errors.New("db_path is required")
)
