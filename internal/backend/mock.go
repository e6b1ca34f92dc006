package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"docscout/internal/document"
	"docscout/internal/protocol"
)

// Mock is an in-memory SearchBackend over a set of documents. It backs the
// CLI's --mock mode and the test suites: lexical search is term matching
// per line, semantic search is token-overlap scoring, pattern search is
// regexp over lines, and documents above the progressive threshold return
// a structure instead of content, exactly like the real store.
type Mock struct {
	docs      map[string]string
	threshold int
	chunkSize int

	// failures injects a transport failure per tool kind.
	failures map[protocol.Kind]error
}

// NewMock creates an empty mock backend with the given progressive
// threshold in bytes (0 uses the default of 4000).
func NewMock(threshold int) *Mock {
	if threshold <= 0 {
		threshold = 4000
	}
	return &Mock{
		docs:      make(map[string]string),
		threshold: threshold,
		chunkSize: document.DefaultChunkSize,
		failures:  make(map[protocol.Kind]error),
	}
}

// AddDocument registers a document under path.
func (m *Mock) AddDocument(path, content string) {
	m.docs[path] = content
}

// LoadDirectory indexes every regular file under dir, keyed by its path
// relative to dir.
func (m *Mock) LoadDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		m.docs[filepath.ToSlash(rel)] = string(data)
		return nil
	})
}

// FailWith makes every subsequent invocation of kind fail with err.
// Pass a nil error to clear the injection.
func (m *Mock) FailWith(kind protocol.Kind, err error) {
	if err == nil {
		delete(m.failures, kind)
		return
	}
	m.failures[kind] = err
}

// Execute serves a retrieval request from the in-memory index.
func (m *Mock) Execute(ctx context.Context, req *protocol.ToolRequest) (*protocol.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := m.failures[req.Kind]; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res := &protocol.ToolResult{RequestID: req.ID, Kind: req.Kind}
	switch req.Kind {
	case protocol.KindFetchFile:
		m.fetchFile(req, res)
	case protocol.KindFetchSection:
		m.fetchSection(req, res)
	case protocol.KindLexicalSearch:
		res.Hits = m.lexical(req)
	case protocol.KindSemanticSearch:
		res.Hits = m.semantic(req)
	case protocol.KindPatternSearch:
		if err := m.pattern(req, res); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: mock cannot execute %s", ErrUnavailable, req.Kind)
	}

	normalize(res)
	return res, nil
}

func (m *Mock) fetchFile(req *protocol.ToolRequest, res *protocol.ToolResult) {
	path := req.Param("file_path")
	content, ok := m.docs[path]
	if !ok {
		return
	}
	if len(content) > m.threshold {
		res.Progressive = true
		res.Structure = document.BuildStructure(path, content, m.chunkSize)
		return
	}
	res.Content = &protocol.FileContent{Path: path, Text: content}
}

func (m *Mock) fetchSection(req *protocol.ToolRequest, res *protocol.ToolResult) {
	path := req.Param("file_path")
	content, ok := m.docs[path]
	if !ok {
		return
	}
	addr, err := document.ParseAddress(req.Param("section_id"))
	if err != nil {
		// Validation runs before dispatch; reaching here means the
		// controller skipped it. Report as empty rather than guessing.
		return
	}

	st := document.BuildStructure(path, content, m.chunkSize)
	var start, end int
	switch addr.Kind {
	case document.AddressSection:
		sec, err := st.Resolve(addr)
		if err != nil {
			return
		}
		start, end = sec.StartPos, sec.EndPos
	case document.AddressChunk:
		start, end, err = st.ChunkBounds(addr)
		if err != nil {
			return
		}
	}
	res.Content = &protocol.FileContent{Path: path, Address: addr.String(), Text: content[start:end]}
}

func (m *Mock) lexical(req *protocol.ToolRequest) []protocol.Hit {
	query := req.Param("query")
	operator := req.Param("operator")

	// Alternatives joined by OR each contribute their terms.
	var terms []string
	for _, alt := range strings.Split(query, " OR ") {
		terms = append(terms, tokens(alt)...)
	}
	if len(terms) == 0 {
		return nil
	}

	var hits []protocol.Hit
	for path, content := range m.docs {
		for i, line := range strings.Split(content, "\n") {
			lower := strings.ToLower(line)
			matched := 0
			for _, t := range terms {
				if strings.Contains(lower, strings.ToLower(t)) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			if operator == "AND" && matched < len(terms) {
				continue
			}
			hits = append(hits, protocol.Hit{
				Path:    path,
				Score:   float64(matched) / float64(len(terms)),
				Snippet: strings.TrimSpace(line),
				Line:    i + 1,
			})
		}
	}
	return topK(hits, req.TopK())
}

func (m *Mock) semantic(req *protocol.ToolRequest) []protocol.Hit {
	queryTokens := make(map[string]struct{})
	for _, t := range tokens(strings.ReplaceAll(req.Param("query"), " OR ", " ")) {
		queryTokens[strings.ToLower(t)] = struct{}{}
	}
	if len(queryTokens) == 0 {
		return nil
	}

	var hits []protocol.Hit
	for path, content := range m.docs {
		docTokens := make(map[string]struct{})
		for _, t := range tokens(content) {
			docTokens[strings.ToLower(t)] = struct{}{}
		}
		overlap := 0
		for t := range queryTokens {
			if _, ok := docTokens[t]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(queryTokens))
		if score < req.MinScore() || overlap == 0 {
			continue
		}
		hits = append(hits, protocol.Hit{Path: path, Score: score, Snippet: snippet(content)})
	}
	return topK(hits, req.TopK())
}

func (m *Mock) pattern(req *protocol.ToolRequest, res *protocol.ToolResult) error {
	expr := req.Param("pattern")
	if !req.CaseSensitive() {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("%w: bad pattern %q: %v", ErrUnavailable, req.Param("pattern"), err)
	}

	var hits []protocol.Hit
	for path, content := range m.docs {
		for i, line := range strings.Split(content, "\n") {
			if !re.MatchString(line) {
				continue
			}
			hits = append(hits, protocol.Hit{Path: path, Score: 1.0, Snippet: strings.TrimSpace(line), Line: i + 1})
		}
	}
	res.Hits = topK(hits, req.TopK())
	return nil
}

// normalize mirrors protocol envelope normalization for locally-built
// results: derive the status from the payload.
func normalize(res *protocol.ToolResult) {
	switch {
	case res.Progressive && res.Structure != nil:
		res.Status = protocol.StatusOK
	case res.Content != nil || len(res.Hits) > 0:
		res.Status = protocol.StatusOK
	default:
		res.Status = protocol.StatusEmpty
	}
}

func topK(hits []protocol.Hit, k int) []protocol.Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func snippet(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
