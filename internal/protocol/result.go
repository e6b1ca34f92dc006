package protocol

import (
	"encoding/json"
	"fmt"

	"docscout/internal/document"
)

// ResultStatus classifies a tool result for the controller's sufficiency
// evaluation. Empty results and failures are still results: they transition
// the state machine back to REASONING, never terminate it.
type ResultStatus string

const (
	// StatusOK means the backend returned usable content or hits.
	StatusOK ResultStatus = "ok"

	// StatusEmpty means the backend responded with zero matches. Not an
	// error; the controller switches strategy.
	StatusEmpty ResultStatus = "empty"

	// StatusError means the invocation failed (validation or backend).
	StatusError ResultStatus = "error"
)

// FailureKind distinguishes the two error-result origins.
type FailureKind string

const (
	// FailureValidation marks a synthetic result for a request rejected
	// before dispatch.
	FailureValidation FailureKind = "validation"

	// FailureBackend marks a transport/availability failure of the store.
	FailureBackend FailureKind = "backend"
)

// Hit is one search match from a lexical, semantic, or pattern query.
type Hit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
	Line    int     `json:"line,omitempty"`
}

// FileContent is the payload of a fetch_file or fetch_section result.
type FileContent struct {
	Path    string `json:"path"`
	Address string `json:"address,omitempty"` // set for sectioned fetches
	Text    string `json:"text"`
}

// ToolResult is the response envelope for one ToolRequest. Exactly one of
// Hits, Content, or Structure carries the payload; Progressive marks a
// fetch that returned a navigable structure instead of content.
type ToolResult struct {
	RequestID   string              `json:"request_id"`
	Kind        Kind                `json:"tool"`
	Status      ResultStatus        `json:"status"`
	Hits        []Hit               `json:"results,omitempty"`
	Content     *FileContent        `json:"content,omitempty"`
	Progressive bool                `json:"progressive,omitempty"`
	Structure   *document.Structure `json:"structure,omitempty"`
	Failure     FailureKind         `json:"failure,omitempty"`
	Err         string              `json:"error,omitempty"`
}

// DecodeEnvelope parses a backend response envelope and normalizes its
// status. The envelope must echo the request ID for correlation.
func DecodeEnvelope(data []byte) (*ToolResult, error) {
	var res ToolResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}
	if res.RequestID == "" {
		return nil, fmt.Errorf("%w: envelope missing request_id", ErrResultMismatch)
	}
	res.normalize()
	return &res, nil
}

// normalize derives Status from the payload when the backend left it unset.
func (r *ToolResult) normalize() {
	if r.Err != "" {
		r.Status = StatusError
		if r.Failure == "" {
			r.Failure = FailureBackend
		}
		return
	}
	if r.Status != "" {
		return
	}
	if r.Progressive && r.Structure != nil {
		r.Status = StatusOK
		return
	}
	if r.Content != nil || len(r.Hits) > 0 {
		r.Status = StatusOK
		return
	}
	r.Status = StatusEmpty
}

// Productive reports whether the result carries usable evidence: content,
// a structure to navigate, or at least one hit.
func (r *ToolResult) Productive() bool {
	if r.Status != StatusOK {
		return false
	}
	return r.Content != nil || r.Structure != nil || len(r.Hits) > 0
}

// SourcePaths lists every concrete source path this result observed.
// Answer synthesis may only cite paths drawn from these.
func (r *ToolResult) SourcePaths() []string {
	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	if r.Content != nil {
		add(r.Content.Path)
	}
	if r.Structure != nil {
		add(r.Structure.DocPath)
	}
	for _, h := range r.Hits {
		add(h.Path)
	}
	return paths
}

// NewValidationResult wraps a pre-dispatch validation failure as a
// synthetic result so the controller can self-correct in REASONING.
func NewValidationResult(req *ToolRequest, verr error) *ToolResult {
	return &ToolResult{
		RequestID: req.ID,
		Kind:      req.Kind,
		Status:    StatusError,
		Failure:   FailureValidation,
		Err:       verr.Error(),
	}
}

// NewBackendFailure wraps a transport/availability failure as a result the
// controller can distinguish from an empty match set.
func NewBackendFailure(req *ToolRequest, err error) *ToolResult {
	return &ToolResult{
		RequestID: req.ID,
		Kind:      req.Kind,
		Status:    StatusError,
		Failure:   FailureBackend,
		Err:       err.Error(),
	}
}
