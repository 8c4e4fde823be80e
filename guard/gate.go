package guard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// ConfirmationSuffix follows the challenge code in a valid credential.
	ConfirmationSuffix = "_DELETE_THIS_GRAPH"

	// DefaultPrivilegedNamespace is the only namespace allowed to reset.
	DefaultPrivilegedNamespace = "root"

	// SuccessMessage is returned after a completed reset.
	SuccessMessage = "Graph cleared successfully and indices rebuilt. All data has been deleted."
)

// Target is the store operation the gate protects.
type Target interface {
	// Wipe deletes all data in every namespace.
	Wipe(ctx context.Context) error
	// RebuildIndices regenerates the store's indices.
	RebuildIndices(ctx context.Context) error
}

// Gate holds the current challenge code. Reset holds the gate's mutex for
// its whole duration, so two callers can never both redeem one code.
type Gate struct {
	mu         sync.Mutex
	code       string
	namespace  string
	privileged string
	target     Target
	newCode    func() string
	logger     *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithPrivilegedNamespace sets the namespace that may reset.
// Default is DefaultPrivilegedNamespace.
func WithPrivilegedNamespace(namespace string) Option {
	return func(g *Gate) {
		if namespace != "" {
			g.privileged = namespace
		}
	}
}

// WithCodeGenerator replaces the challenge code source.
func WithCodeGenerator(fn func() string) Option {
	return func(g *Gate) {
		if fn != nil {
			g.newCode = fn
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewCode returns a fresh challenge code: the first eight characters of a
// random UUID.
func NewCode() string {
	return uuid.NewString()[:8]
}

// New creates a gate for a server running in namespace.
func New(target Target, namespace string, opts ...Option) (*Gate, error) {
	if target == nil {
		return nil, ErrTargetRequired
	}
	g := &Gate{
		namespace:  namespace,
		privileged: DefaultPrivilegedNamespace,
		target:     target,
		newCode:    NewCode,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "reset-gate")
	g.code = g.newCode()
	return g, nil
}

// Reset wipes the store and rebuilds its indices when credential is the
// current code followed by ConfirmationSuffix. Every refusal is an *Error.
func (g *Gate) Reset(ctx context.Context, credential string) (string, error) {
	if g.namespace != g.privileged {
		return "", &Error{Kind: KindPermissionDenied, Namespace: g.namespace, Privileged: g.privileged}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if credential == "" {
		return "", &Error{Kind: KindAuthRequired, Code: g.code}
	}

	if credential != g.code+ConfirmationSuffix {
		g.code = g.newCode()
		g.logger.Warn("rejected graph reset credential")
		return "", &Error{Kind: KindInvalidAuth, Code: g.code}
	}

	// The code is consumed even if the reset fails.
	defer func() { g.code = g.newCode() }()

	g.logger.Warn("authorized graph reset; clearing all data")
	if err := g.target.Wipe(ctx); err != nil {
		g.logger.Error("error clearing graph", "err", err)
		return "", &Error{Kind: KindResetFailed, Err: err}
	}
	if err := g.target.RebuildIndices(ctx); err != nil {
		g.logger.Error("error rebuilding indices", "err", err)
		return "", &Error{Kind: KindResetFailed, Err: err}
	}
	g.logger.Info("graph reset complete")
	return SuccessMessage, nil
}
