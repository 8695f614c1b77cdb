// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"math"
	"sync"

	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/log"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheSize is the byte budget of a shared cache created without an
// explicit size.
const DefaultCacheSize = 4 * 1024 * 1024

// SharedCache is a process-wide, least-recently-used cache of code analyses
// keyed by code hash. It is bounded by the estimated memory footprint of its
// entries rather than their number. It is safe for concurrent use; only the
// table operations run under its lock, analysis happens outside of it.
type SharedCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[common.Hash, *CodeAnalysis]
	size    uint64 // estimated footprint of all held entries
	maxSize uint64
}

// NewSharedCache creates a cache holding at most maxSize bytes of analyses.
// A zero maxSize selects DefaultCacheSize.
func NewSharedCache(maxSize uint64) *SharedCache {
	config := CacheConfig{MaxSize: maxSize}.Sanitize()
	c := &SharedCache{maxSize: config.MaxSize}
	// The entry count is never the limiting factor, the byte budget is
	// enforced in Store.
	c.lru, _ = simplelru.NewLRU[common.Hash, *CodeAnalysis](math.MaxInt, c.onEvict)
	log.Debug("Created code analysis cache", "budget", common.StorageSize(c.maxSize))
	return c
}

// Get returns the analysis of code, served from the cache when codeHash is
// known. The returned value is shared and must not be modified.
func (c *SharedCache) Get(codeHash common.Hash, code []byte) *CodeAnalysis {
	return AnalysisFor(c, codeHash, code)
}

// Load retrieves the analysis cached under codeHash and marks it as most
// recently used.
func (c *SharedCache) Load(codeHash common.Hash) (*CodeAnalysis, bool) {
	c.mu.Lock()
	analysis, ok := c.lru.Get(codeHash)
	c.mu.Unlock()

	if ok {
		analysisCacheHitCounter.Inc()
	} else {
		analysisCacheMissCounter.Inc()
	}
	return analysis, ok
}

// Store inserts analysis under codeHash, evicting least recently used entries
// until the budget holds again. An existing entry for the same hash is
// replaced. Analyses larger than the whole budget are not stored.
func (c *SharedCache) Store(codeHash common.Hash, analysis *CodeAnalysis) {
	size := analysis.Size()
	if size > c.maxSize {
		analysisCacheOversizeCounter.Inc()
		log.Debug("Code analysis exceeds cache budget", "hash", codeHash, "size", common.StorageSize(size), "budget", common.StorageSize(c.maxSize))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(codeHash); ok {
		c.size -= old.Size()
	}
	c.lru.Add(codeHash, analysis)
	c.size += size

	for c.size > c.maxSize {
		hash, _, ok := c.lru.RemoveOldest()
		if !ok {
			break
		}
		analysisCacheEvictCounter.Inc()
		log.Trace("Evicted code analysis", "hash", hash, "cached", common.StorageSize(c.size))
	}
	analysisCacheSizeGauge.Set(float64(c.size))
	analysisCacheEntriesGauge.Set(float64(c.lru.Len()))
}

// onEvict keeps the footprint accounting in line with the table. It runs
// under c.mu, from RemoveOldest and Purge.
func (c *SharedCache) onEvict(_ common.Hash, analysis *CodeAnalysis) {
	c.size -= analysis.Size()
}

// Len returns the number of cached analyses.
func (c *SharedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the estimated footprint of all cached analyses in bytes.
func (c *SharedCache) Size() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSize returns the byte budget of the cache.
func (c *SharedCache) MaxSize() uint64 {
	return c.maxSize
}

// Purge drops every cached analysis. Callers still holding an analysis keep
// a valid value.
func (c *SharedCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	analysisCacheSizeGauge.Set(0)
	analysisCacheEntriesGauge.Set(0)
}
