package protocol

import (
	"errors"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		params map[string]string
	}{
		{"fetch file", KindFetchFile, map[string]string{"file_path": "docs/guide.md"}},
		{"fetch section", KindFetchSection, map[string]string{"file_path": "docs/guide.md", "section_id": "section_3.1"}},
		{"fetch chunk range", KindFetchSection, map[string]string{"file_path": "docs/guide.md", "section_id": "chunk_1-5"}},
		{"lexical defaults", KindLexicalSearch, map[string]string{"query": "RBAC"}},
		{"lexical full", KindLexicalSearch, map[string]string{"query": "RBAC", "top_k": "5", "operator": "AND", "file_filter": "docs/"}},
		{"semantic", KindSemanticSearch, map[string]string{"query": "how auth works", "min_score": "0.25"}},
		{"pattern", KindPatternSearch, map[string]string{"pattern": `func \w+Handler`, "case_sensitive": "false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewToolRequest(tt.kind, tt.params)
			if err := req.Validate(); err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		params    map[string]string
		wantField string
	}{
		{"missing required", KindFetchFile, map[string]string{}, "file_path"},
		{"blank required", KindLexicalSearch, map[string]string{"query": "   "}, "query"},
		{"unknown parameter", KindLexicalSearch, map[string]string{"query": "x", "limit": "5"}, "limit"},
		{"enum violation", KindLexicalSearch, map[string]string{"query": "x", "operator": "XOR"}, "operator"},
		{"top_k zero", KindSemanticSearch, map[string]string{"query": "x", "top_k": "0"}, "top_k"},
		{"top_k garbage", KindSemanticSearch, map[string]string{"query": "x", "top_k": "many"}, "top_k"},
		{"min_score above one", KindSemanticSearch, map[string]string{"query": "x", "min_score": "1.5"}, "min_score"},
		{"bad bool", KindPatternSearch, map[string]string{"pattern": "x", "case_sensitive": "yep"}, "case_sensitive"},
		{"bad address", KindFetchSection, map[string]string{"file_path": "a.md", "section_id": "chunks_1_3"}, "section_id"},
		{"address range inverted", KindFetchSection, map[string]string{"file_path": "a.md", "section_id": "chunk_5-2"}, "section_id"},
		{"unknown tool", Kind("grep"), map[string]string{"query": "x"}, "tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewToolRequest(tt.kind, tt.params)
			err := req.Validate()
			if err == nil {
				t.Fatal("Validate() accepted, want error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v should wrap ErrValidation", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestParamDefaults(t *testing.T) {
	req := NewToolRequest(KindLexicalSearch, map[string]string{"query": "x"})
	if got := req.Param("operator"); got != "OR" {
		t.Errorf("operator default = %q, want OR", got)
	}
	if got := req.TopK(); got != 8 {
		t.Errorf("TopK default = %d, want 8", got)
	}

	sem := NewToolRequest(KindSemanticSearch, map[string]string{"query": "x"})
	if got := sem.MinScore(); got != 0.1 {
		t.Errorf("MinScore default = %g, want 0.1", got)
	}

	pat := NewToolRequest(KindPatternSearch, map[string]string{"pattern": "x"})
	if !pat.CaseSensitive() {
		t.Error("case_sensitive should default to true")
	}
}

func TestFingerprint(t *testing.T) {
	a := NewToolRequest(KindLexicalSearch, map[string]string{"query": "x", "top_k": "5"})
	b := NewToolRequest(KindLexicalSearch, map[string]string{"top_k": "5", "query": "x"})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("parameter order must not change the fingerprint")
	}
	if a.ID == b.ID {
		t.Error("correlation IDs must differ")
	}

	c := NewToolRequest(KindLexicalSearch, map[string]string{"query": "x", "top_k": "6"})
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different params must fingerprint differently")
	}

	d := NewToolRequest(KindSemanticSearch, map[string]string{"query": "x", "top_k": "5"})
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("different kinds must fingerprint differently")
	}
}
