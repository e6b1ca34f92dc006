// Package router maps a query's shape to a retrieval strategy. Selection is
// a pure function of the query text; no state, no side effects. Priority
// when signals overlap: exact file path, then exact identifier (lexical),
// then structural/pattern description, then conceptual (semantic). Ties
// break toward the higher-precision strategy to minimize false positives.
package router

import (
	"regexp"
	"strings"

	"docscout/internal/logging"
	"docscout/internal/protocol"
)

// Decision is the outcome of routing one (sub-)query.
type Decision struct {
	// Kind is the selected retrieval tool.
	Kind protocol.Kind

	// Target carries the extracted argument: a file path for fetch_file,
	// a regular expression for pattern_search, the query otherwise.
	Target string

	// Reason is a short human-readable routing explanation, used in the
	// controller's reasoning text.
	Reason string
}

var (
	// A path token: slash-separated segments ending in an extension.
	pathToken = regexp.MustCompile(`(?:^|\s)((?:[\w.-]+/)+[\w.-]+\.[A-Za-z0-9]{1,8})(?:[\s,;:?]|$)`)

	// Exact-identifier signals: CamelCase, snake_case, dotted or quoted names.
	camelToken  = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][a-zA-Z0-9]*)+\b`)
	snakeToken  = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9]*(?:_[a-zA-Z0-9]+)+\b`)
	dottedToken = regexp.MustCompile(`\b[a-zA-Z_][\w]*(?:\.[a-zA-Z_][\w]*)+\b`)
	quotedToken = regexp.MustCompile("[\"'`]([^\"'`]{2,})[\"'`]")

	// Structural/pattern signals: explicit regex metacharacters or wording
	// that asks for matching.
	regexMeta   = regexp.MustCompile(`[\^\$]|\.\*|\.\+|\[[^\]]+\]|\\[dws]`)
	patternWord = regexp.MustCompile(`(?i)\b(regex|regexp|pattern|patrón|patron|matching|que coincidan|wildcard)\b`)
)

// Select picks the retrieval strategy for a query.
func Select(query string) Decision {
	trimmed := strings.TrimSpace(query)

	if path, ok := knownPath(trimmed); ok {
		d := Decision{Kind: protocol.KindFetchFile, Target: path, Reason: "query names an exact file path"}
		logging.RouterDebug("Route %q -> %s (%s)", trimmed, d.Kind, d.Reason)
		return d
	}

	if id, ok := exactIdentifier(trimmed); ok {
		d := Decision{Kind: protocol.KindLexicalSearch, Target: trimmed, Reason: "query carries the exact term " + id}
		logging.RouterDebug("Route %q -> %s (%s)", trimmed, d.Kind, d.Reason)
		return d
	}

	if pat, ok := structuralPattern(trimmed); ok {
		d := Decision{Kind: protocol.KindPatternSearch, Target: pat, Reason: "query describes a structural pattern"}
		logging.RouterDebug("Route %q -> %s (%s)", trimmed, d.Kind, d.Reason)
		return d
	}

	d := Decision{Kind: protocol.KindSemanticSearch, Target: trimmed, Reason: "conceptual query, no exact signals"}
	logging.RouterDebug("Route %q -> %s (%s)", trimmed, d.Kind, d.Reason)
	return d
}

// knownPath extracts a file path when the query names one.
func knownPath(query string) (string, bool) {
	if m := pathToken.FindStringSubmatch(query); m != nil {
		return m[1], true
	}
	return "", false
}

// exactIdentifier reports whether the query carries an exact technical term
// and returns the strongest one found.
func exactIdentifier(query string) (string, bool) {
	if m := quotedToken.FindStringSubmatch(query); m != nil {
		return m[1], true
	}
	if m := camelToken.FindString(query); m != "" {
		return m, true
	}
	if m := snakeToken.FindString(query); m != "" {
		return m, true
	}
	if m := dottedToken.FindString(query); m != "" {
		return m, true
	}
	return "", false
}

// structuralPattern extracts a regular expression from a pattern-shaped
// query: an explicit regex fragment, or the quoted part of a "matching X"
// phrasing. Falls back to the whole query when the wording asks for
// pattern matching but carries no extractable fragment.
func structuralPattern(query string) (string, bool) {
	if m := regexMeta.FindString(query); m != "" {
		// Take the longest whitespace-delimited token containing regex meta.
		best := ""
		for _, tok := range strings.Fields(query) {
			if regexMeta.MatchString(tok) && len(tok) > len(best) {
				best = tok
			}
		}
		if best != "" {
			return best, true
		}
	}
	if patternWord.MatchString(query) {
		if m := quotedToken.FindStringSubmatch(query); m != nil {
			return m[1], true
		}
		return query, true
	}
	return "", false
}

// fallbackOrder drives strategy switching after an empty result: the next
// strategy to try for the same sub-question, most precise first.
var fallbackOrder = map[protocol.Kind][]protocol.Kind{
	protocol.KindFetchFile:      {protocol.KindLexicalSearch, protocol.KindSemanticSearch, protocol.KindPatternSearch},
	protocol.KindLexicalSearch:  {protocol.KindSemanticSearch, protocol.KindPatternSearch},
	protocol.KindSemanticSearch: {protocol.KindLexicalSearch, protocol.KindPatternSearch},
	protocol.KindPatternSearch:  {protocol.KindLexicalSearch, protocol.KindSemanticSearch},
}

// NextFallback returns the next untried strategy after current produced
// nothing. attempted reports strategies already spent on this sub-question.
func NextFallback(current protocol.Kind, attempted func(protocol.Kind) bool) (protocol.Kind, bool) {
	for _, next := range fallbackOrder[current] {
		if !attempted(next) {
			return next, true
		}
	}
	return "", false
}
