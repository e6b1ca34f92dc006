package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructureCacheWriteOnce(t *testing.T) {
	cache, err := NewStructureCache(8)
	require.NoError(t, err)

	first := BuildStructure("a.md", "# One\ncontent\n", 10)
	second := BuildStructure("a.md", "# Two\ndifferent content\n", 10)

	require.True(t, cache.Put(first))
	require.False(t, cache.Put(second), "second Put for the same path must be a no-op")

	got, ok := cache.Get("a.md")
	require.True(t, ok)
	require.Same(t, first, got, "the first structure stays stable for the session")
}

func TestStructureCacheHasAndPurge(t *testing.T) {
	cache, err := NewStructureCache(8)
	require.NoError(t, err)

	require.False(t, cache.Has("doc.md"))
	cache.Put(BuildStructure("doc.md", "# T\nbody\n", 10))
	require.True(t, cache.Has("doc.md"))
	require.Equal(t, 1, cache.Len())

	cache.Purge()
	require.False(t, cache.Has("doc.md"))
	require.Equal(t, 0, cache.Len())
}

func TestStructureCacheBounded(t *testing.T) {
	cache, err := NewStructureCache(2)
	require.NoError(t, err)

	cache.Put(BuildStructure("a.md", "# A\n", 10))
	cache.Put(BuildStructure("b.md", "# B\n", 10))
	cache.Put(BuildStructure("c.md", "# C\n", 10))

	require.Equal(t, 2, cache.Len())
	require.False(t, cache.Has("a.md"), "oldest entry evicted")
}
