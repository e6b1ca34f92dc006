// Package protocol defines the tool invocation contract between the
// conversation controller and the retrieval backend: the six tool kinds
// and their parameter schemas, request validation, the markup wire codec
// (one tagged block per controller turn), and the JSON response envelope.
package protocol

// Kind identifies a tool.
type Kind string

const (
	KindFetchFile      Kind = "fetch_file"
	KindFetchSection   Kind = "fetch_section"
	KindLexicalSearch  Kind = "lexical_search"
	KindSemanticSearch Kind = "semantic_search"
	KindPatternSearch  Kind = "pattern_search"
	KindPresentAnswer  Kind = "present_answer"
)

// Kinds lists every tool kind in wire-tag order.
var Kinds = []Kind{
	KindFetchFile,
	KindFetchSection,
	KindLexicalSearch,
	KindSemanticSearch,
	KindPatternSearch,
	KindPresentAnswer,
}

// Valid reports whether k is a known tool kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsRetrieval reports whether k dispatches to the search backend
// (everything except present_answer).
func (k Kind) IsRetrieval() bool {
	return k.Valid() && k != KindPresentAnswer
}

// Property describes a single parameter for a tool schema.
type Property struct {
	Type        string   // "string", "int", "float", "bool"
	Description string
	Default     string   // wire-form default, empty if none
	Enum        []string // allowed values, empty if unconstrained
}

// Schema defines the parameters of a tool kind. Exactly one parameter is
// required per retrieval kind (file_path, query, or pattern); the rest are
// optional with stated defaults.
type Schema struct {
	Required   []string
	Properties map[string]Property
}

// Confidence grades for present_answer.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

var schemas = map[Kind]Schema{
	KindFetchFile: {
		Required: []string{"file_path"},
		Properties: map[string]Property{
			"file_path": {Type: "string", Description: "Exact path of the document to fetch"},
		},
	},
	KindFetchSection: {
		Required: []string{"file_path", "section_id"},
		Properties: map[string]Property{
			"file_path":  {Type: "string", Description: "Document whose structure was returned"},
			"section_id": {Type: "string", Description: "Section or chunk address, e.g. section_3.1 or chunk_1-5"},
		},
	},
	KindLexicalSearch: {
		Required: []string{"query"},
		Properties: map[string]Property{
			"query":       {Type: "string", Description: "Exact terms to match"},
			"top_k":       {Type: "int", Description: "Maximum results", Default: "8"},
			"operator":    {Type: "string", Description: "Term combination", Default: "OR", Enum: []string{"AND", "OR"}},
			"file_filter": {Type: "string", Description: "Restrict to paths containing this fragment"},
		},
	},
	KindSemanticSearch: {
		Required: []string{"query"},
		Properties: map[string]Property{
			"query":     {Type: "string", Description: "Conceptual description of the information sought"},
			"top_k":     {Type: "int", Description: "Maximum results", Default: "8"},
			"min_score": {Type: "float", Description: "Minimum similarity score", Default: "0.1"},
		},
	},
	KindPatternSearch: {
		Required: []string{"pattern"},
		Properties: map[string]Property{
			"pattern":        {Type: "string", Description: "Regular expression to match"},
			"top_k":          {Type: "int", Description: "Maximum results", Default: "8"},
			"case_sensitive": {Type: "bool", Description: "Case-sensitive matching", Default: "true"},
			"file_filter":    {Type: "string", Description: "Restrict to paths containing this fragment"},
		},
	},
	KindPresentAnswer: {
		Required: []string{"answer", "sources"},
		Properties: map[string]Property{
			"answer":      {Type: "string", Description: "Narrative answer for the user"},
			"sources":     {Type: "string", Description: "Cited source paths"},
			"confidence":  {Type: "string", Description: "Answer reliability grade", Default: ConfidenceMedium, Enum: []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}},
			"suggestions": {Type: "string", Description: "Follow-up suggestions"},
		},
	},
}

// SchemaFor returns the parameter schema for a tool kind.
func SchemaFor(k Kind) (Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}
