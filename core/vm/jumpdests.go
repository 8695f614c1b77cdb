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
	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/core/types"
)

// AnalysisCache represents the cache of code analysis results.
type AnalysisCache interface {
	// Load retrieves the cached analysis for the given code hash.
	// Returns the analysis and true if found, or nil and false if not cached.
	Load(codeHash common.Hash) (*CodeAnalysis, bool)

	// Store saves the analysis for the given code hash.
	Store(codeHash common.Hash, analysis *CodeAnalysis)
}

// mapAnalyses is the default implementation of AnalysisCache using a map.
// This implementation is not thread-safe and is meant to be used per EVM instance.
type mapAnalyses map[common.Hash]*CodeAnalysis

// newMapAnalyses creates a new map-based AnalysisCache implementation.
func newMapAnalyses() AnalysisCache {
	return make(mapAnalyses)
}

func (m mapAnalyses) Load(codeHash common.Hash) (*CodeAnalysis, bool) {
	analysis, ok := m[codeHash]
	return analysis, ok
}

func (m mapAnalyses) Store(codeHash common.Hash, analysis *CodeAnalysis) {
	m[codeHash] = analysis
}

// NewAnalysisCache returns the process-wide shared cache if one is given,
// otherwise a private map-based cache for a single EVM instance.
func NewAnalysisCache(shared *SharedCache) AnalysisCache {
	if shared == nil {
		return newMapAnalyses()
	}
	return shared
}

// AnalysisFor returns the analysis of code, looking it up in cache by
// codeHash first. The empty code hash and the zero hash (no hash known) never
// touch the cache. On a miss the analysis is computed outside of the cache
// and then stored, so concurrent misses on the same hash may each compute it.
func AnalysisFor(cache AnalysisCache, codeHash common.Hash, code []byte) *CodeAnalysis {
	if codeHash == types.EmptyCodeHash || codeHash == (common.Hash{}) {
		analysisCacheBypassCounter.Inc()
		return AnalyzeCode(code)
	}
	if analysis, ok := cache.Load(codeHash); ok {
		return analysis
	}
	analysis := AnalyzeCode(code)
	cache.Store(codeHash, analysis)
	return analysis
}
