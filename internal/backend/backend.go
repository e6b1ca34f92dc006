// Package backend defines the search backend boundary: fetch-by-path,
// lexical, semantic, and pattern queries against an external indexed store.
// Every operation is read-only and idempotent, so an aborted session leaves
// no side effects behind.
package backend

import (
	"context"
	"errors"

	"docscout/internal/protocol"
)

// SearchBackend executes one validated retrieval request and returns its
// result envelope. Implementations must echo the request ID. A transport
// or availability failure is returned as an error; the controller converts
// it into a distinguishable BackendFailure result.
type SearchBackend interface {
	Execute(ctx context.Context, req *protocol.ToolRequest) (*protocol.ToolResult, error)
}

// ErrUnavailable wraps transport/availability failures of the store.
var ErrUnavailable = errors.New("search backend unavailable")
