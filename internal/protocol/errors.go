package protocol

import (
	"errors"
	"fmt"
)

// Protocol and validation errors.
var (
	// ErrProtocolViolation covers turn-structure breaches: zero or multiple
	// action blocks in a controller turn, a tool request co-occurring with a
	// final answer, or duplicated answer channels. These are programming
	// errors and are prevented at construction/parse time.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownTool is returned for a tag that is not a known tool kind.
	ErrUnknownTool = errors.New("unknown tool kind")

	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrResultMismatch is returned when a ToolResult does not correlate
	// with the pending ToolRequest.
	ErrResultMismatch = errors.New("result does not match pending request")
)

// ValidationError describes a malformed tool request parameter: a missing
// required field, an out-of-domain enum value, or bad address grammar.
// It is raised before dispatch and surfaced back to the controller as a
// synthetic ToolResult, never sent to the backend.
type ValidationError struct {
	Tool   Kind
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %s", e.Tool, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%q: %s", e.Tool, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
