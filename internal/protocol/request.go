package protocol

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"docscout/internal/document"
)

// ToolRequest is a single structured request from the controller to the
// retrieval backend. Immutable once emitted: the controller builds it,
// Validate gates it, and the backend only reads it.
type ToolRequest struct {
	// ID correlates the request with its result envelope.
	ID string `json:"id"`

	// Kind identifies the tool.
	Kind Kind `json:"tool"`

	// Params holds the named parameters in wire form.
	Params map[string]string `json:"params"`
}

// NewToolRequest builds a request with a fresh correlation ID.
func NewToolRequest(kind Kind, params map[string]string) *ToolRequest {
	if params == nil {
		params = make(map[string]string)
	}
	return &ToolRequest{
		ID:     uuid.NewString(),
		Kind:   kind,
		Params: params,
	}
}

// Param returns a parameter value, or the schema default when unset.
func (r *ToolRequest) Param(name string) string {
	if v, ok := r.Params[name]; ok && v != "" {
		return v
	}
	if schema, ok := SchemaFor(r.Kind); ok {
		return schema.Properties[name].Default
	}
	return ""
}

// Fingerprint canonicalizes kind+params so the controller can detect a
// repeated identical invocation (which the bounded-retry policy forbids).
func (r *ToolRequest) Fingerprint() string {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(r.Kind))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Params[k])
	}
	return b.String()
}

// Validate checks the request against its schema: required parameters
// present, enum values in domain, numeric and boolean parameters parseable,
// and section addresses inside the grammar. Runs before dispatch; a failure
// here never reaches the backend.
func (r *ToolRequest) Validate() error {
	schema, ok := SchemaFor(r.Kind)
	if !ok {
		return &ValidationError{Tool: r.Kind, Field: "tool", Value: string(r.Kind), Reason: "unknown tool kind"}
	}

	for _, required := range schema.Required {
		if strings.TrimSpace(r.Params[required]) == "" {
			return &ValidationError{Tool: r.Kind, Field: required, Reason: "required parameter missing"}
		}
	}

	for name, value := range r.Params {
		prop, known := schema.Properties[name]
		if !known {
			return &ValidationError{Tool: r.Kind, Field: name, Value: value, Reason: "unknown parameter"}
		}
		if value == "" {
			continue
		}
		if err := checkProperty(r.Kind, name, value, prop); err != nil {
			return err
		}
	}

	if r.Kind == KindFetchSection {
		if _, err := document.ParseAddress(r.Params["section_id"]); err != nil {
			return &ValidationError{Tool: r.Kind, Field: "section_id", Value: r.Params["section_id"], Reason: "does not match section/chunk address grammar"}
		}
	}

	return nil
}

func checkProperty(kind Kind, name, value string, prop Property) error {
	if len(prop.Enum) > 0 {
		for _, allowed := range prop.Enum {
			if value == allowed {
				return nil
			}
		}
		return &ValidationError{Tool: kind, Field: name, Value: value, Reason: "value outside allowed domain " + strings.Join(prop.Enum, "|")}
	}

	switch prop.Type {
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return &ValidationError{Tool: kind, Field: name, Value: value, Reason: "must be a positive integer"}
		}
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return &ValidationError{Tool: kind, Field: name, Value: value, Reason: "must be a float in [0, 1]"}
		}
	case "bool":
		if _, err := strconv.ParseBool(value); err != nil {
			return &ValidationError{Tool: kind, Field: name, Value: value, Reason: "must be a boolean"}
		}
	}
	return nil
}

// TopK returns the effective top_k for a search request.
func (r *ToolRequest) TopK() int {
	n, err := strconv.Atoi(r.Param("top_k"))
	if err != nil || n < 1 {
		return 8
	}
	return n
}

// MinScore returns the effective min_score for a semantic search.
func (r *ToolRequest) MinScore() float64 {
	f, err := strconv.ParseFloat(r.Param("min_score"), 64)
	if err != nil {
		return 0.1
	}
	return f
}

// CaseSensitive returns the effective case_sensitive flag for pattern search.
func (r *ToolRequest) CaseSensitive() bool {
	b, err := strconv.ParseBool(r.Param("case_sensitive"))
	if err != nil {
		return true
	}
	return b
}
