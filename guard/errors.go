package guard

import (
	"errors"
	"fmt"
)

// ErrTargetRequired is returned when a gate is built without a reset target.
var ErrTargetRequired = errors.New("reset target required")

// Kind classifies a gate refusal.
type Kind int

const (
	// KindPermissionDenied: the server is not running in the privileged namespace.
	KindPermissionDenied Kind = iota + 1
	// KindAuthRequired: no credential was supplied.
	KindAuthRequired
	// KindInvalidAuth: the credential did not match; a new code was issued.
	KindInvalidAuth
	// KindResetFailed: the credential matched but the reset failed.
	KindResetFailed
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission denied"
	case KindAuthRequired:
		return "authentication required"
	case KindInvalidAuth:
		return "invalid authentication"
	case KindResetFailed:
		return "reset failed"
	default:
		return "unknown"
	}
}

// Error is returned by Gate.Reset for every outcome except success.
type Error struct {
	Kind Kind

	// Code is the challenge code the caller must present next.
	// Empty for KindPermissionDenied and KindResetFailed.
	Code string

	// Namespace and Privileged are set for KindPermissionDenied.
	Namespace  string
	Privileged string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPermissionDenied:
		return fmt.Sprintf("PERMISSION DENIED: Graph clearing operations are restricted to the root group ID. "+
			"Current group ID: '%s', required root group ID: '%s'.", e.Namespace, e.Privileged)
	case KindAuthRequired:
		return fmt.Sprintf("AUTHENTICATION REQUIRED: To clear the graph, you must first request permission from the user. "+
			"Then call this function again with auth parameter set to '%s%s'.", e.Code, ConfirmationSuffix)
	case KindInvalidAuth:
		return fmt.Sprintf("INVALID AUTHENTICATION: Authorization failed. A new authorization code has been generated. "+
			"To clear the graph, first request permission from the user, then call this function again "+
			"with auth parameter set to '%s%s'.", e.Code, ConfirmationSuffix)
	case KindResetFailed:
		return fmt.Sprintf("Error clearing graph: %v", e.Err)
	default:
		return "guard: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a gate Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}
