package router

import (
	"testing"

	"docscout/internal/protocol"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantKind protocol.Kind
	}{
		{"explicit path", "show me docs/architecture/overview.md", protocol.KindFetchFile},
		{"path with extension", "what is in config/settings.yaml?", protocol.KindFetchFile},
		{"camel case identifier", "where is TokenBucket defined", protocol.KindLexicalSearch},
		{"snake case identifier", "what does max_futile_turns control", protocol.KindLexicalSearch},
		{"quoted term", `search for "circuit breaker"`, protocol.KindLexicalSearch},
		{"regex fragment", `find lines matching ^Error.*timeout`, protocol.KindPatternSearch},
		{"pattern wording", "list files matching the wildcard pattern handler", protocol.KindPatternSearch},
		{"conceptual", "how does the system recover from failures", protocol.KindSemanticSearch},
		{"conceptual spanish", "como funciona la recuperacion ante fallos", protocol.KindSemanticSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Select(tt.query)
			if d.Kind != tt.wantKind {
				t.Errorf("Select(%q).Kind = %s, want %s (reason: %s)", tt.query, d.Kind, tt.wantKind, d.Reason)
			}
			if d.Target == "" {
				t.Errorf("Select(%q) returned empty target", tt.query)
			}
			if d.Reason == "" {
				t.Errorf("Select(%q) returned empty reason", tt.query)
			}
		})
	}
}

func TestSelectExtractsPath(t *testing.T) {
	d := Select("summarize docs/guide.md for me")
	if d.Kind != protocol.KindFetchFile {
		t.Fatalf("Kind = %s, want fetch_file", d.Kind)
	}
	if d.Target != "docs/guide.md" {
		t.Errorf("Target = %q, want docs/guide.md", d.Target)
	}
}

func TestSelectExtractsRegex(t *testing.T) {
	d := Select(`find functions matching func.*Handler please`)
	if d.Kind != protocol.KindPatternSearch {
		t.Fatalf("Kind = %s, want pattern_search", d.Kind)
	}
	if d.Target != "func.*Handler" {
		t.Errorf("Target = %q, want func.*Handler", d.Target)
	}
}

func TestNextFallback(t *testing.T) {
	attempted := map[protocol.Kind]bool{protocol.KindLexicalSearch: true}
	isAttempted := func(k protocol.Kind) bool { return attempted[k] }

	next, ok := NextFallback(protocol.KindLexicalSearch, isAttempted)
	if !ok || next != protocol.KindSemanticSearch {
		t.Fatalf("after lexical, next = %s (ok=%v), want semantic_search", next, ok)
	}

	attempted[protocol.KindSemanticSearch] = true
	next, ok = NextFallback(protocol.KindSemanticSearch, isAttempted)
	if !ok || next != protocol.KindPatternSearch {
		t.Fatalf("after semantic, next = %s (ok=%v), want pattern_search", next, ok)
	}

	attempted[protocol.KindPatternSearch] = true
	if _, ok := NextFallback(protocol.KindPatternSearch, isAttempted); ok {
		t.Error("every strategy attempted, want no fallback")
	}
}

func TestFallbackNeverRepeats(t *testing.T) {
	for _, start := range []protocol.Kind{
		protocol.KindFetchFile,
		protocol.KindLexicalSearch,
		protocol.KindSemanticSearch,
		protocol.KindPatternSearch,
	} {
		attempted := map[protocol.Kind]bool{start: true}
		current := start
		for {
			next, ok := NextFallback(current, func(k protocol.Kind) bool { return attempted[k] })
			if !ok {
				break
			}
			if attempted[next] {
				t.Fatalf("fallback from %s repeated %s", start, next)
			}
			attempted[next] = true
			current = next
		}
	}
}
