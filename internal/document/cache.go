package document

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"docscout/internal/logging"
)

// StructureCache holds the structures obtained from progressive fetches,
// keyed by document path. A structure is written exactly once per document;
// later Put calls for the same document are ignored so the first structure
// stays stable across the session. The cache is scoped to one session and
// purged when the session ends.
type StructureCache struct {
	cache *lru.Cache[string, *Structure]
}

// NewStructureCache creates a cache bounded to size entries.
func NewStructureCache(size int) (*StructureCache, error) {
	c, err := lru.New[string, *Structure](size)
	if err != nil {
		return nil, err
	}
	return &StructureCache{cache: c}, nil
}

// Put stores a structure for its document. Returns false if the document
// already has a structure (write-once; the stored one wins).
func (c *StructureCache) Put(s *Structure) bool {
	if _, ok := c.cache.Get(s.DocPath); ok {
		logging.DocumentDebug("Structure for %s already cached, keeping original", s.DocPath)
		return false
	}
	c.cache.Add(s.DocPath, s)
	logging.Document("Cached structure for %s (%d sections, %d chunks)", s.DocPath, len(s.Sections), s.ChunkCount)
	return true
}

// Get returns the cached structure for a document path.
func (c *StructureCache) Get(docPath string) (*Structure, bool) {
	return c.cache.Get(docPath)
}

// Has reports whether a document has already gone progressive this session.
func (c *StructureCache) Has(docPath string) bool {
	return c.cache.Contains(docPath)
}

// Len returns the number of cached structures.
func (c *StructureCache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached structure. Called at session end.
func (c *StructureCache) Purge() {
	c.cache.Purge()
}
