// Package glossary provides query expansion from a synonym/acronym
// dictionary. The dictionary is read-only configuration loaded at session
// start (optionally hot-reloaded by the watcher); expansion appends
// OR-alternatives and never replaces the original terms, so re-expanding
// an already-expanded query is a no-op.
package glossary

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"docscout/internal/logging"
)

// AcronymSource is the source path cited when a query is answered straight
// from the acronym dictionary, without any retrieval.
const AcronymSource = "context:acronyms_dictionary"

// Acronym is one acronym dictionary entry.
type Acronym struct {
	Expansion  string `yaml:"expansion"`
	Definition string `yaml:"definition,omitempty"`
}

// glossaryFile is the YAML shape of a glossary file.
type glossaryFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
	Acronyms map[string]Acronym  `yaml:"acronyms"`
}

// tables is one immutable snapshot of the dictionary. Reload swaps the
// whole snapshot so readers never observe a partial update.
type tables struct {
	synonyms map[string][]string // keyed lowercase
	acronyms map[string]Acronym  // keyed uppercase
}

// Glossary holds the current dictionary snapshot.
type Glossary struct {
	mu   sync.RWMutex
	path string
	t    *tables
}

// New returns an empty glossary. Expansion through it is the identity.
func New() *Glossary {
	return &Glossary{t: &tables{
		synonyms: make(map[string][]string),
		acronyms: make(map[string]Acronym),
	}}
}

// Load reads a glossary YAML file. A missing file yields an empty glossary
// bound to the path, so a watcher can pick the file up later.
func Load(path string) (*Glossary, error) {
	g := New()
	g.path = path
	if err := g.Reload(); err != nil {
		if os.IsNotExist(err) {
			logging.Glossary("Glossary file %s not found, starting empty", path)
			return g, nil
		}
		return nil, err
	}
	return g, nil
}

// Path returns the file path this glossary was loaded from.
func (g *Glossary) Path() string { return g.path }

// Reload re-reads the glossary file and atomically swaps the snapshot.
func (g *Glossary) Reload() error {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return err
	}

	var gf glossaryFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return fmt.Errorf("failed to parse glossary %s: %w", g.path, err)
	}

	t := &tables{
		synonyms: make(map[string][]string, len(gf.Synonyms)),
		acronyms: make(map[string]Acronym, len(gf.Acronyms)),
	}
	for term, alts := range gf.Synonyms {
		t.synonyms[strings.ToLower(term)] = alts
	}
	for acr, entry := range gf.Acronyms {
		t.acronyms[strings.ToUpper(acr)] = entry
	}

	g.mu.Lock()
	g.t = t
	g.mu.Unlock()

	logging.Glossary("Loaded glossary %s: %d synonym terms, %d acronyms", g.path, len(t.synonyms), len(t.acronyms))
	return nil
}

func (g *Glossary) snapshot() *tables {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.t
}

// Expand appends dictionary alternatives to a query as OR-alternatives.
// The original query stays verbatim as the first alternative, so the
// original term set is a strict subset of the expanded one, and expanding
// an already-expanded query changes nothing.
func (g *Glossary) Expand(query string) string {
	t := g.snapshot()

	alternatives := splitAlternatives(query)
	if len(alternatives) == 0 {
		return query
	}

	present := make(map[string]struct{}, len(alternatives))
	for _, alt := range alternatives {
		present[strings.ToLower(alt)] = struct{}{}
	}
	appendAlt := func(alt string) {
		key := strings.ToLower(alt)
		if _, ok := present[key]; ok {
			return
		}
		present[key] = struct{}{}
		alternatives = append(alternatives, alt)
	}

	// Candidates come from the words of the original alternative only;
	// appended alternatives are already dictionary output.
	for _, word := range tokenize(alternatives[0]) {
		for _, syn := range t.synonyms[strings.ToLower(word)] {
			appendAlt(syn)
		}
		if entry, ok := t.acronyms[strings.ToUpper(word)]; ok && entry.Expansion != "" {
			appendAlt(entry.Expansion)
		}
	}

	return strings.Join(alternatives, " OR ")
}

// DirectAnswer is an answer taken straight from the acronym dictionary.
type DirectAnswer struct {
	Acronym    string
	Expansion  string
	Definition string
}

// definitionQuestion matches queries that ask what a term means, in the
// phrasings the deployment actually sees (Spanish and English).
var definitionQuestion = regexp.MustCompile(`(?i)(qué significa|que significa|qué es|que es|significado de|what does|what is|meaning of|stands? for|definition of)`)

// LookupAcronym checks whether the query asks for the meaning of a known
// acronym. When it does, the controller answers directly with the
// dictionary entry instead of issuing any retrieval.
func (g *Glossary) LookupAcronym(query string) (*DirectAnswer, bool) {
	if !definitionQuestion.MatchString(query) {
		return nil, false
	}

	t := g.snapshot()
	for _, word := range tokenize(query) {
		entry, ok := t.acronyms[strings.ToUpper(word)]
		if !ok {
			continue
		}
		// Only treat tokens written as acronyms (or exact keys) as lookups.
		if word != strings.ToUpper(word) {
			continue
		}
		return &DirectAnswer{
			Acronym:    strings.ToUpper(word),
			Expansion:  entry.Expansion,
			Definition: entry.Definition,
		}, true
	}
	return nil, false
}

// splitAlternatives splits a query on the OR connector, trimming blanks.
func splitAlternatives(query string) []string {
	var alts []string
	for _, part := range strings.Split(query, " OR ") {
		part = strings.TrimSpace(part)
		if part != "" {
			alts = append(alts, part)
		}
	}
	return alts
}

// tokenize splits text into word tokens, dropping punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
