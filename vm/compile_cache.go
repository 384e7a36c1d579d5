package vm

import (
	"crypto/sha256"
	"sync"
)

// ---------------------------------------------------------------------------
// CompileCache: content-addressed cache of compiled programs
// ---------------------------------------------------------------------------

// CompileCache indexes compiled programs by the SHA-256 of their source
// text. The facade consults it on every LoadProgram so re-loading identical
// source skips the compiler; entries are immutable once stored.
type CompileCache struct {
	mu       sync.RWMutex
	programs map[[32]byte]*Program

	hits, misses uint64
}

// NewCompileCache creates an empty cache.
func NewCompileCache() *CompileCache {
	return &CompileCache{programs: make(map[[32]byte]*Program)}
}

// SourceKey returns the cache key for a source text.
func SourceKey(source []byte) [32]byte {
	return sha256.Sum256(source)
}

// Lookup returns the cached program for key, or nil.
func (c *CompileCache) Lookup(key [32]byte) *Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.programs[key]
	if p != nil {
		c.hits++
	} else {
		c.misses++
	}
	return p
}

// Store records a compiled program under key.
func (c *CompileCache) Store(key [32]byte, p *Program) {
	c.mu.Lock()
	c.programs[key] = p
	c.mu.Unlock()
}

// Len returns the number of cached programs.
func (c *CompileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Stats returns the hit and miss counts.
func (c *CompileCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
