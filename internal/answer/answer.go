// Package answer assembles the terminal AnswerRecord of a conversation:
// narrative, cited sources, a confidence grade derived from corroborating
// source count, and optional follow-up suggestions. It never cites a path
// that no ToolResult returned, and it never fabricates content: when the
// bounded-retry policy exhausts, it emits the "not found" template
// enumerating the searches attempted.
package answer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"docscout/internal/logging"
	"docscout/internal/protocol"
)

// ContextSourcePrefix marks synthetic provenance (glossary answers, the
// attempted-search log) as opposed to paths returned by the backend.
const ContextSourcePrefix = "context:"

// AttemptedSearchesSource is cited by "not found" records.
const AttemptedSearchesSource = ContextSourcePrefix + "attempted_searches"

// Item is one piece of evidence: a source path with the snippet that
// supports the answer and the strategy that found it.
type Item struct {
	Source   string
	Snippet  string
	Score    float64
	Strategy protocol.Kind
}

// Evidence accumulates everything the session observed: the full set of
// source paths seen in results (the citation universe) and the items
// considered relevant to the query.
type Evidence struct {
	items []Item
	seen  map[string]struct{}
}

// NewEvidence returns an empty evidence accumulator.
func NewEvidence() *Evidence {
	return &Evidence{seen: make(map[string]struct{})}
}

// ObserveResult records every source path a result returned, productive or
// not. Paths recorded here form the universe answers may cite from.
func (e *Evidence) ObserveResult(res *protocol.ToolResult) {
	for _, p := range res.SourcePaths() {
		e.seen[p] = struct{}{}
	}
}

// Add records a relevant evidence item. The source must already have been
// observed through ObserveResult.
func (e *Evidence) Add(item Item) {
	e.items = append(e.items, item)
}

// Seen reports whether a source path was observed in any result.
func (e *Evidence) Seen(path string) bool {
	_, ok := e.seen[path]
	return ok
}

// Items returns the relevant evidence collected so far.
func (e *Evidence) Items() []Item { return e.items }

// Sources returns the distinct sources of relevant items, in first-seen order.
func (e *Evidence) Sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range e.items {
		if _, ok := seen[it.Source]; ok {
			continue
		}
		seen[it.Source] = struct{}{}
		out = append(out, it.Source)
	}
	return out
}

// Attempt is one search spent on the query, reported by "not found" records.
type Attempt struct {
	Kind  protocol.Kind
	Query string
}

func (a Attempt) String() string {
	return fmt.Sprintf("%s(%q)", a.Kind, a.Query)
}

// Record is the terminal artifact of a query: created exactly once,
// immutable afterwards, discarded with the session transcript.
type Record struct {
	Query       string    `json:"query"`
	Narrative   string    `json:"narrative"`
	Sources     []string  `json:"sources"`
	Confidence  string    `json:"confidence"`
	Suggestions []string  `json:"suggestions,omitempty"`
	NotFound    bool      `json:"not_found,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WireAnswer converts the record to its protocol form.
func (r *Record) WireAnswer() *protocol.FinalAnswer {
	return &protocol.FinalAnswer{
		Narrative:   r.Narrative,
		Sources:     r.Sources,
		Confidence:  r.Confidence,
		Suggestions: r.Suggestions,
	}
}

// Synthesizer builds answer records from accumulated evidence.
type Synthesizer struct{}

// NewSynthesizer returns a Synthesizer.
func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

// Synthesize builds the answer for a query from relevant evidence.
// Confidence: high when two or more independent sources corroborate,
// medium for exactly one solid source, low when the evidence is indirect.
// Every cited source must have been observed in a prior result.
func (s *Synthesizer) Synthesize(query string, ev *Evidence) (*Record, error) {
	var sources []string
	for _, src := range ev.Sources() {
		if !strings.HasPrefix(src, ContextSourcePrefix) && !ev.Seen(src) {
			return nil, fmt.Errorf("source %q was never observed in a tool result", src)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no cited sources: use NotFound for evidence-free answers")
	}

	record := &Record{
		Query:      query,
		Narrative:  buildNarrative(query, ev.Items()),
		Sources:    sources,
		Confidence: grade(ev),
		CreatedAt:  time.Now(),
	}
	if record.Confidence == protocol.ConfidenceLow {
		record.Suggestions = []string{
			"Rephrase the question with an exact term or file path for a more direct match.",
		}
	}

	logging.Answer("Synthesized answer: %d sources, confidence=%s", len(sources), record.Confidence)
	return record, nil
}

// Direct builds a record answered from session context (e.g. the acronym
// dictionary) without retrieval.
func (s *Synthesizer) Direct(query, narrative, source string) *Record {
	return &Record{
		Query:      query,
		Narrative:  narrative,
		Sources:    []string{source},
		Confidence: protocol.ConfidenceHigh,
		CreatedAt:  time.Now(),
	}
}

// NotFound builds the template record for an exhausted search: it lists the
// strategies attempted and fabricates nothing.
func (s *Synthesizer) NotFound(query string, attempts []Attempt) *Record {
	var b strings.Builder
	fmt.Fprintf(&b, "No relevant information was found for %q in the knowledge base.\n", query)
	b.WriteString("Searches attempted:\n")
	for _, a := range attempts {
		fmt.Fprintf(&b, "  - %s\n", a)
	}

	return &Record{
		Query:      query,
		Narrative:  strings.TrimRight(b.String(), "\n"),
		Sources:    []string{AttemptedSearchesSource},
		Confidence: protocol.ConfidenceLow,
		NotFound:   true,
		Suggestions: []string{
			"Try different terminology or a known file path.",
			"Check whether the topic is covered by the indexed corpus.",
		},
		CreatedAt: time.Now(),
	}
}

// grade maps corroboration to a confidence level.
func grade(ev *Evidence) string {
	sources := ev.Sources()
	switch {
	case len(sources) >= 2:
		return protocol.ConfidenceHigh
	case len(sources) == 1 && hasDirectEvidence(ev):
		return protocol.ConfidenceMedium
	default:
		return protocol.ConfidenceLow
	}
}

// hasDirectEvidence reports whether any item is a direct match (fetched
// content, or a search hit with a solid score) rather than an inference.
func hasDirectEvidence(ev *Evidence) bool {
	for _, it := range ev.Items() {
		if it.Strategy == protocol.KindFetchFile || it.Strategy == protocol.KindFetchSection {
			return true
		}
		if it.Score >= 0.5 {
			return true
		}
	}
	return false
}

// buildNarrative composes the user-facing answer from the best snippets.
func buildNarrative(query string, items []Item) string {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var b strings.Builder
	fmt.Fprintf(&b, "Findings for %q:\n", query)
	limit := 5
	for i, it := range sorted {
		if i >= limit {
			break
		}
		snippet := it.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		fmt.Fprintf(&b, "  - %s: %s\n", it.Source, snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
