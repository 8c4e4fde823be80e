package ingestion

import (
	"log/slog"
	"runtime"
	"time"
)

type options struct {
	logger   *slog.Logger
	poolSize int
	clock    func() time.Time
}

func defaultOptions() options {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return options{
		logger:   slog.Default(),
		poolSize: poolSize,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func applyOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Option configures a Registry, Gateway or Processor.
// Options that do not apply to a component are ignored by it.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithPoolSize sets the Processor's embedding pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *options) error {
		if size < 1 {
			size = 1
		}
		o.poolSize = size
		return nil
	}
}

// WithClock overrides the Gateway's submission clock.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock != nil {
			o.clock = clock
		}
		return nil
	}
}
