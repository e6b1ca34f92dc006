package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docscout/internal/protocol"
)

func newTestMock(t *testing.T) *Mock {
	t.Helper()
	m := NewMock(200)
	m.AddDocument("docs/auth.md", "# Authentication\nTokens expire after one hour.\nRefresh uses the /oauth/refresh endpoint.\n")
	m.AddDocument("docs/limits.md", "# Rate Limits\nClients get 100 requests per minute.\nExcess requests receive HTTP 429.\n")
	m.AddDocument("docs/big.md", strings.Repeat("# Chapter\nlong body text about deployment pipelines\n", 60))
	return m
}

func exec(t *testing.T, m *Mock, kind protocol.Kind, params map[string]string) *protocol.ToolResult {
	t.Helper()
	req := protocol.NewToolRequest(kind, params)
	require.NoError(t, req.Validate())
	res, err := m.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, req.ID, res.RequestID, "result must echo the request id")
	return res
}

func TestMockFetchFileSmall(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchFile, map[string]string{"file_path": "docs/auth.md"})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.False(t, res.Progressive)
	require.NotNil(t, res.Content)
	require.Contains(t, res.Content.Text, "Tokens expire")
}

func TestMockFetchFileProgressive(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchFile, map[string]string{"file_path": "docs/big.md"})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.True(t, res.Progressive, "oversized document returns its structure")
	require.Nil(t, res.Content)
	require.NotNil(t, res.Structure)
	require.NotEmpty(t, res.Structure.Sections)
	require.Greater(t, res.Structure.ChunkCount, 0)
}

func TestMockFetchFileMissing(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchFile, map[string]string{"file_path": "docs/nope.md"})
	require.Equal(t, protocol.StatusEmpty, res.Status)
	require.False(t, res.Productive())
}

func TestMockFetchSection(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchSection, map[string]string{
		"file_path":  "docs/big.md",
		"section_id": "section_1",
	})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.NotNil(t, res.Content)
	require.Equal(t, "section_1", res.Content.Address)
	require.Contains(t, res.Content.Text, "Chapter")
}

func TestMockFetchChunkRange(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchSection, map[string]string{
		"file_path":  "docs/big.md",
		"section_id": "chunk_1-2",
	})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.NotNil(t, res.Content)
	require.Equal(t, "chunk_1-2", res.Content.Address)
}

func TestMockFetchSectionOutOfRange(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindFetchSection, map[string]string{
		"file_path":  "docs/auth.md",
		"section_id": "section_9",
	})
	require.Equal(t, protocol.StatusEmpty, res.Status)
}

func TestMockLexicalSearch(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindLexicalSearch, map[string]string{"query": "requests minute"})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.NotEmpty(t, res.Hits)
	require.Equal(t, "docs/limits.md", res.Hits[0].Path)
	require.Greater(t, res.Hits[0].Line, 0)
}

func TestMockLexicalSearchOperatorAND(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindLexicalSearch, map[string]string{
		"query":    "requests refresh",
		"operator": "AND",
	})
	// No single line carries both terms.
	require.Equal(t, protocol.StatusEmpty, res.Status)
}

func TestMockLexicalSearchORAlternatives(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindLexicalSearch, map[string]string{
		"query": "nonexistentterm OR 429",
	})
	require.Equal(t, protocol.StatusOK, res.Status)
	require.Equal(t, "docs/limits.md", res.Hits[0].Path)
}

func TestMockSemanticSearch(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindSemanticSearch, map[string]string{
		"query": "requests per minute rate",
	})
	require.Equal(t, protocol.StatusOK, res.Status)
	require.Equal(t, "docs/limits.md", res.Hits[0].Path)
}

func TestMockSemanticSearchMinScoreFilters(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindSemanticSearch, map[string]string{
		"query":     "requests and also many unrelated words appear here nowhere",
		"min_score": "0.9",
	})
	require.Equal(t, protocol.StatusEmpty, res.Status)
}

func TestMockPatternSearch(t *testing.T) {
	m := newTestMock(t)
	res := exec(t, m, protocol.KindPatternSearch, map[string]string{"pattern": `HTTP \d+`})

	require.Equal(t, protocol.StatusOK, res.Status)
	require.Equal(t, "docs/limits.md", res.Hits[0].Path)
}

func TestMockPatternSearchCaseInsensitive(t *testing.T) {
	m := newTestMock(t)

	sensitive := exec(t, m, protocol.KindPatternSearch, map[string]string{"pattern": "http"})
	require.Equal(t, protocol.StatusEmpty, sensitive.Status)

	insensitive := exec(t, m, protocol.KindPatternSearch, map[string]string{
		"pattern":        "http",
		"case_sensitive": "false",
	})
	require.Equal(t, protocol.StatusOK, insensitive.Status)
}

func TestMockPatternSearchBadRegex(t *testing.T) {
	m := newTestMock(t)
	req := protocol.NewToolRequest(protocol.KindPatternSearch, map[string]string{"pattern": "("})
	_, err := m.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMockTopKBounds(t *testing.T) {
	m := NewMock(0)
	for i := 0; i < 20; i++ {
		m.AddDocument("docs/doc"+string(rune('a'+i))+".md", "shared keyword line\n")
	}
	res := exec(t, m, protocol.KindLexicalSearch, map[string]string{"query": "keyword", "top_k": "3"})
	require.Len(t, res.Hits, 3)
}

func TestMockFailureInjection(t *testing.T) {
	m := newTestMock(t)
	m.FailWith(protocol.KindLexicalSearch, errors.New("index offline"))

	req := protocol.NewToolRequest(protocol.KindLexicalSearch, map[string]string{"query": "x"})
	_, err := m.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrUnavailable)

	m.FailWith(protocol.KindLexicalSearch, nil)
	_, err = m.Execute(context.Background(), req)
	require.NoError(t, err)
}

func TestMockContextCancelled(t *testing.T) {
	m := newTestMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := protocol.NewToolRequest(protocol.KindFetchFile, map[string]string{"file_path": "docs/auth.md"})
	_, err := m.Execute(ctx, req)
	require.ErrorIs(t, err, ErrUnavailable)
}
