package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/recollect/schema"
)

var (
	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned no response")

	// ErrNotInitialized indicates an AI service that was never configured.
	ErrNotInitialized = errors.New("ai provider not initialized")
)

// ValidationError reports structured content that does not match the
// declared entity types.
type ValidationError struct {
	// Entity names the declared entity the issues belong to, when known.
	Entity string
	Issues []schema.Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		fmt.Fprintf(&b, "validation failed for %s (%d issues)", e.Entity, len(e.Issues))
	} else {
		fmt.Fprintf(&b, "validation failed (%d issues)", len(e.Issues))
	}
	for _, issue := range e.Issues {
		b.WriteString("\n")
		b.WriteString(issue.String())
	}
	return b.String()
}

// NewValidationError builds a ValidationError from a single message.
func NewValidationError(field string, input any, msg string) *ValidationError {
	return &ValidationError{Issues: []schema.Issue{{Field: field, Input: input, Message: msg}}}
}
