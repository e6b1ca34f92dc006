package document

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Section is one node of a document structure. Children are arena indexes
// into Structure.Sections rather than pointers, so the tree serializes
// cleanly and parents exclusively own their children.
type Section struct {
	ID       string `json:"id"`    // hierarchical, e.g. "section_3" or "section_3.1"
	Title    string `json:"title"`
	Level    int    `json:"level"` // 1 for top-level sections
	StartPos int    `json:"start_pos"`
	EndPos   int    `json:"end_pos"`
	Children []int  `json:"children,omitempty"`
}

// Structure describes an oversized document as a navigable section tree
// plus a positional chunk count. It is built once, on the first progressive
// fetch, and is stable for the lifetime of the session.
type Structure struct {
	DocPath    string    `json:"doc_path"`
	Sections   []Section `json:"sections"`
	Roots      []int     `json:"roots"`
	ChunkCount int       `json:"chunk_count"`
	ChunkSize  int       `json:"chunk_size"`
	TotalBytes int       `json:"total_bytes"`
}

// ByID returns the section with the given hierarchical id.
func (s *Structure) ByID(id string) (*Section, bool) {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i], true
		}
	}
	return nil, false
}

// Resolve walks a section address down the tree. The address path is
// 1-indexed: section_3.1 is the first child of the third root.
func (s *Structure) Resolve(addr Address) (*Section, error) {
	if addr.Kind != AddressSection {
		return nil, fmt.Errorf("%w: %s is not a section address", ErrSectionNotFound, addr)
	}

	candidates := s.Roots
	var node *Section
	for _, idx := range addr.Path {
		if idx < 1 || idx > len(candidates) {
			return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, addr)
		}
		arenaIdx := candidates[idx-1]
		if arenaIdx < 0 || arenaIdx >= len(s.Sections) {
			return nil, fmt.Errorf("%w: %s (corrupt arena index %d)", ErrSectionNotFound, addr, arenaIdx)
		}
		node = &s.Sections[arenaIdx]
		candidates = node.Children
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, addr)
	}
	return node, nil
}

// ChunkBounds returns the byte range [start, end) covered by the inclusive
// chunk range of addr.
func (s *Structure) ChunkBounds(addr Address) (int, int, error) {
	if addr.Kind != AddressChunk {
		return 0, 0, fmt.Errorf("%w: %s is not a chunk address", ErrChunkOutOfRange, addr)
	}
	if s.ChunkCount == 0 || addr.End > s.ChunkCount {
		return 0, 0, fmt.Errorf("%w: %s (document has %d chunks)", ErrChunkOutOfRange, addr, s.ChunkCount)
	}
	start := (addr.Start - 1) * s.ChunkSize
	end := addr.End * s.ChunkSize
	if end > s.TotalBytes {
		end = s.TotalBytes
	}
	return start, end, nil
}

// SelectSection matches query terms against section titles and returns the
// best section to fetch next, preferring the smallest enclosing section over
// a whole-document re-fetch. Scoring: count of distinct query terms found in
// the title; ties break toward the deeper (smaller) section.
func (s *Structure) SelectSection(query string) (*Section, bool) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, false
	}

	var best *Section
	bestScore := 0
	for i := range s.Sections {
		sec := &s.Sections[i]
		title := strings.ToLower(sec.Title)
		score := 0
		for term := range terms {
			if strings.Contains(title, term) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && sec.Level > best.Level) {
			best = sec
			bestScore = score
		}
	}
	return best, best != nil
}

// queryTerms lowercases and tokenizes a query, dropping short tokens.
func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len(tok) < 3 {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

// DefaultChunkSize is the positional chunk granularity used when building
// structures locally (the mock backend and tests). A real backend reports
// its own chunking in the response envelope.
const DefaultChunkSize = 1000

// BuildStructure derives a Structure from markdown-ish content: heading
// lines (#, ##, ...) open sections, byte offsets delimit them, and the
// chunk count covers the whole document at chunkSize granularity.
func BuildStructure(docPath, content string, chunkSize int) *Structure {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	st := &Structure{
		DocPath:    docPath,
		ChunkSize:  chunkSize,
		TotalBytes: len(content),
		ChunkCount: (len(content) + chunkSize - 1) / chunkSize,
	}

	type open struct {
		arena int
		level int
	}
	var stack []open

	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimRight(line, "\n")
		level := headingLevel(trimmed)
		if level > 0 {
			// Close every open section at this level or deeper.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				st.Sections[stack[len(stack)-1].arena].EndPos = offset
				stack = stack[:len(stack)-1]
			}

			sec := Section{
				Title:    strings.TrimSpace(strings.TrimLeft(trimmed, "#")),
				Level:    level,
				StartPos: offset,
				EndPos:   len(content),
			}
			arena := len(st.Sections)
			if len(stack) == 0 {
				sec.ID = "section_" + strconv.Itoa(len(st.Roots)+1)
				st.Roots = append(st.Roots, arena)
			} else {
				parent := &st.Sections[stack[len(stack)-1].arena]
				sec.ID = parent.ID + "." + strconv.Itoa(len(parent.Children)+1)
				parent.Children = append(parent.Children, arena)
			}
			st.Sections = append(st.Sections, sec)
			stack = append(stack, open{arena: arena, level: level})
		}
		offset += len(line)
	}
	for _, o := range stack {
		st.Sections[o.arena].EndPos = len(content)
	}

	return st
}

func headingLevel(line string) int {
	level := 0
	for _, r := range line {
		if r == '#' {
			level++
			continue
		}
		if r == ' ' && level > 0 {
			return level
		}
		return 0
	}
	return 0
}
