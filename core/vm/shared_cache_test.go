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
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/core/types"
	"github.com/equa/go-equa-codecache/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// smallEntrySize is the footprint of the analysis of any code up to 64 bytes.
var smallEntrySize = AnalyzeCode([]byte{0x00}).Size()

// testCode returns a distinct small program and its hash.
func testCode(i int) (common.Hash, []byte) {
	code := []byte{byte(JUMPDEST), byte(PUSH1), byte(i), byte(BEGINSUB), byte(i >> 8)}
	return crypto.Keccak256Hash(code), code
}

func TestSharedCacheHit(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	hash, code := testCode(1)

	first := cache.Get(hash, code)
	require.Equal(t, 1, cache.Len())
	second := cache.Get(hash, code)
	require.Same(t, first, second, "hit must return the shared analysis")

	fresh := AnalyzeCode(code)
	assert.True(t, fresh.JumpDests().Equal(second.JumpDests()))
	assert.True(t, fresh.SubroutineEntries().Equal(second.SubroutineEntries()))
	assert.Equal(t, fresh.SubroutineLength(0), second.SubroutineLength(0))
	assert.Equal(t, fresh.SubroutineLength(3), second.SubroutineLength(3))
}

func TestSharedCacheHitIgnoresCode(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	hash, code := testCode(1)
	cached := cache.Get(hash, code)

	// The hash is authoritative: a hit never looks at the code again.
	other := cache.Get(hash, nil)
	require.Same(t, cached, other)
}

func TestSharedCacheEmptyCodeBypass(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	for i := 0; i < 10; i++ {
		analysis := cache.Get(types.EmptyCodeHash, nil)
		require.NotNil(t, analysis)
		require.Zero(t, analysis.JumpDests().Count())
		require.Zero(t, analysis.SubroutineLength(0))
	}
	// Even non-empty code under the empty hash is analyzed but never stored.
	analysis := cache.Get(types.EmptyCodeHash, []byte{byte(JUMPDEST)})
	require.True(t, analysis.ValidJumpDest(0))

	require.Zero(t, cache.Len())
	require.Zero(t, cache.Size())
	_, ok := cache.Load(types.EmptyCodeHash)
	require.False(t, ok)
}

func TestSharedCacheNoHash(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	_, code := testCode(2)

	a := cache.Get(common.Hash{}, code)
	b := cache.Get(common.Hash{}, code)
	require.NotSame(t, a, b, "analysis without a hash must not be cached")
	require.True(t, a.JumpDests().Equal(b.JumpDests()))
	require.Zero(t, cache.Len())
}

func TestSharedCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(3 * smallEntrySize)

	hashA, codeA := testCode(1)
	hashB, codeB := testCode(2)
	hashC, codeC := testCode(3)
	hashD, codeD := testCode(4)

	cache.Get(hashA, codeA)
	cache.Get(hashB, codeB)
	cache.Get(hashC, codeC)
	require.Equal(t, 3, cache.Len())
	require.Equal(t, 3*smallEntrySize, cache.Size())

	// Touch A so that B becomes the oldest entry.
	_, ok := cache.Load(hashA)
	require.True(t, ok)

	cache.Get(hashD, codeD)
	require.Equal(t, 3, cache.Len())
	require.LessOrEqual(t, cache.Size(), cache.MaxSize())

	_, ok = cache.Load(hashB)
	assert.False(t, ok, "B should have been evicted")
	for _, hash := range []common.Hash{hashA, hashC, hashD} {
		_, ok := cache.Load(hash)
		assert.True(t, ok, "hash %v evicted", hash)
	}
}

func TestSharedCacheEvictsByBytes(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(4 * smallEntrySize)
	for i := 0; i < 4; i++ {
		hash, code := testCode(i)
		cache.Get(hash, code)
	}
	require.Equal(t, 4, cache.Len())

	// A larger program displaces several small ones.
	big := bytes.Repeat([]byte{byte(JUMPDEST)}, 256)
	bigSize := AnalyzeCode(big).Size()
	require.Less(t, bigSize, cache.MaxSize())
	cache.Get(crypto.Keccak256Hash(big), big)

	require.LessOrEqual(t, cache.Size(), cache.MaxSize())
	require.Less(t, cache.Len(), 4)
	_, ok := cache.Load(crypto.Keccak256Hash(big))
	require.True(t, ok)
}

func TestSharedCacheOversized(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(smallEntrySize)
	hash, code := testCode(1)
	cache.Get(hash, code)

	big := bytes.Repeat([]byte{byte(JUMPDEST)}, 1024)
	analysis := cache.Get(crypto.Keccak256Hash(big), big)
	require.True(t, analysis.ValidJumpDest(1023))

	// The oversized analysis is returned but neither stored nor allowed to
	// flush the cache.
	require.Equal(t, 1, cache.Len())
	_, ok := cache.Load(hash)
	require.True(t, ok)
}

func TestSharedCacheReplace(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	hash, code := testCode(1)

	first := AnalyzeCode(code)
	second := AnalyzeCode(code)
	cache.Store(hash, first)
	cache.Store(hash, second)

	require.Equal(t, 1, cache.Len())
	require.Equal(t, second.Size(), cache.Size())
	stored, ok := cache.Load(hash)
	require.True(t, ok)
	require.Same(t, second, stored, "last writer wins")
}

func TestSharedCachePurge(t *testing.T) {
	t.Parallel()
	cache := NewSharedCache(DefaultCacheSize)
	hash, code := testCode(1)
	held := cache.Get(hash, code)
	cache.Purge()

	require.Zero(t, cache.Len())
	require.Zero(t, cache.Size())
	// Holders keep a usable analysis after the table let go of it.
	require.True(t, held.ValidJumpDest(0))
	require.True(t, held.ValidSubroutineEntry(3))
}

func TestSharedCacheDefaultSize(t *testing.T) {
	t.Parallel()
	require.Equal(t, uint64(DefaultCacheSize), NewSharedCache(0).MaxSize())
	require.Equal(t, uint64(1234), NewSharedCache(1234).MaxSize())
}

func TestSharedCacheBudget(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		budget := rapid.Uint64Range(smallEntrySize, 8*smallEntrySize).Draw(t, "budget")
		cache := NewSharedCache(budget)

		ops := rapid.IntRange(1, 64).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			size := rapid.IntRange(0, 300).Draw(t, "size")
			key := rapid.IntRange(0, 16).Draw(t, "key")
			code := bytes.Repeat([]byte{byte(key)}, size)
			cache.Get(common.BytesToHash([]byte{byte(key), byte(size >> 8), byte(size), 1}), code)

			if cache.Size() > budget {
				t.Fatalf("cache holds %d bytes, budget %d", cache.Size(), budget)
			}
			var total uint64
			for _, analysis := range cache.lru.Values() {
				total += analysis.Size()
			}
			if total != cache.Size() {
				t.Fatalf("tracked size %d, entries sum to %d", cache.Size(), total)
			}
		}
	})
}

func TestSharedCacheConcurrent(t *testing.T) {
	t.Parallel()
	const (
		workers = 16
		rounds  = 200
		codes   = 8
	)
	cache := NewSharedCache(DefaultCacheSize)

	var (
		hashes = make([]common.Hash, codes)
		progs  = make([][]byte, codes)
		want   = make([]*CodeAnalysis, codes)
	)
	for i := range progs {
		progs[i] = bytes.Repeat([]byte{byte(JUMPDEST), byte(PUSH1), byte(i), byte(BEGINSUB)}, i+1)
		hashes[i] = crypto.Keccak256Hash(progs[i])
		want[i] = AnalyzeCode(progs[i])
	}

	var (
		wg   sync.WaitGroup
		errc = make(chan error, workers)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				i := (w + r) % codes
				got := cache.Get(hashes[i], progs[i])
				if !got.JumpDests().Equal(want[i].JumpDests()) || !got.SubroutineEntries().Equal(want[i].SubroutineEntries()) {
					errc <- fmt.Errorf("worker %d: wrong analysis for code %d", w, i)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Error(err)
	}
	require.Equal(t, codes, cache.Len())
}

// TestSharedCacheMetrics is not parallel: it reads the package-wide counters.
func TestSharedCacheMetrics(t *testing.T) {
	var (
		hits   = testutil.ToFloat64(analysisCacheHitCounter)
		misses = testutil.ToFloat64(analysisCacheMissCounter)
		bypass = testutil.ToFloat64(analysisCacheBypassCounter)
		evicts = testutil.ToFloat64(analysisCacheEvictCounter)
	)
	cache := NewSharedCache(smallEntrySize)
	hashA, codeA := testCode(1)
	hashB, codeB := testCode(2)

	cache.Get(hashA, codeA)
	cache.Get(hashA, codeA)
	cache.Get(hashB, codeB)
	cache.Get(types.EmptyCodeHash, nil)

	assert.Equal(t, hits+1, testutil.ToFloat64(analysisCacheHitCounter))
	assert.Equal(t, misses+2, testutil.ToFloat64(analysisCacheMissCounter))
	assert.Equal(t, bypass+1, testutil.ToFloat64(analysisCacheBypassCounter))
	assert.Equal(t, evicts+1, testutil.ToFloat64(analysisCacheEvictCounter))
}
