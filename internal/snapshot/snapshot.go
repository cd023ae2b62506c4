// Package snapshot caches decoded rule trees so repeated evaluations of an
// unchanged rule skip JSON decoding.
package snapshot

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

type entry struct {
	sum  uint64
	tree rules.Node
}

// Cache maps rule ids to decoded trees. An entry is only served while the
// encoded tree it was decoded from is unchanged, so a stale entry left by a
// write from another process is replaced rather than returned.
type Cache struct {
	mu      sync.RWMutex
	entries map[int64]entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[int64]entry)}
}

// Load returns the decoded tree for rule id whose stored encoding is
// encoded, decoding and caching it on a miss. hit reports whether the tree
// came from the cache.
func (c *Cache) Load(id int64, encoded string) (tree rules.Node, hit bool, err error) {
	sum := xxhash.Sum64String(encoded)

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && e.sum == sum {
		return e.tree, true, nil
	}

	tree, err = rules.Unmarshal(encoded)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[id] = entry{sum: sum, tree: tree}
	c.mu.Unlock()
	return tree, false, nil
}

// Store records an already decoded tree, typically right after a write.
func (c *Cache) Store(id int64, encoded string, tree rules.Node) {
	c.mu.Lock()
	c.entries[id] = entry{sum: xxhash.Sum64String(encoded), tree: tree}
	c.mu.Unlock()
}

// Invalidate drops the entry for id, if any.
func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ETag returns a weak HTTP entity tag for a rule's stored encoding.
func ETag(encoded string) string {
	return `W/"` + strconv.FormatUint(xxhash.Sum64String(encoded), 16) + `"`
}
