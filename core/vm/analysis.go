// Copyright 2014 The go-equa Authors
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
	"github.com/bits-and-blooms/bitset"
)

// analysisOverhead approximates the per-entry bookkeeping of a cached
// analysis beyond its bitmaps: the key, the list element and the headers.
const analysisOverhead = 192

// CodeAnalysis is the result of scanning a piece of EVM code once: the valid
// jump destinations, the subroutine entry points and the length of every
// subroutine. It is immutable once built and may be shared freely between
// goroutines.
type CodeAnalysis struct {
	jumpDests  OffsetSet
	subEntries OffsetSet
	subLengths *SubroutineLengths
}

// AnalyzeCode performs a single forward scan over code. Push data is skipped
// so that immediate bytes are never mistaken for JUMPDEST or BEGINSUB.
// Undefined opcodes are treated as one-byte instructions.
func AnalyzeCode(code []byte) *CodeAnalysis {
	var (
		size       = uint64(len(code))
		jumpDests  = bitset.New(uint(size))
		subEntries = bitset.New(uint(size))
		subLengths = newSubroutineLengths(size)
		subStart   uint64
	)
	for pc := uint64(0); pc < size; pc++ {
		switch class, immediates := classify(OpCode(code[pc])); class {
		case opJumpDest:
			jumpDests.Set(uint(pc))
		case opBeginSub:
			subEntries.Set(uint(pc))
			subLengths.store(subStart, pc-subStart)
			subStart = pc
		case opPush:
			pc += uint64(immediates)
		}
	}
	// The final subroutine, or the whole code if no BEGINSUB was seen, runs
	// until the end of the code even if a truncated push overshot it.
	subLengths.store(subStart, size-subStart)

	return &CodeAnalysis{
		jumpDests:  OffsetSet{jumpDests},
		subEntries: OffsetSet{subEntries},
		subLengths: subLengths,
	}
}

// ValidJumpDest reports whether dest is a JUMPDEST in code position.
func (a *CodeAnalysis) ValidJumpDest(dest uint64) bool {
	return a.jumpDests.Contains(dest)
}

// ValidSubroutineEntry reports whether dest is a BEGINSUB in code position.
func (a *CodeAnalysis) ValidSubroutineEntry(dest uint64) bool {
	return a.subEntries.Contains(dest)
}

// SubroutineLength returns the length in bytes of the subroutine starting at
// start. Offset 0 always starts the implicit top-level subroutine.
func (a *CodeAnalysis) SubroutineLength(start uint64) uint64 {
	return a.subLengths.FindLength(start, a.subEntries)
}

// JumpDests returns the set of valid jump destinations.
func (a *CodeAnalysis) JumpDests() OffsetSet { return a.jumpDests }

// SubroutineEntries returns the set of subroutine entry points.
func (a *CodeAnalysis) SubroutineEntries() OffsetSet { return a.subEntries }

// SubroutineLengths returns the encoded subroutine length index.
func (a *CodeAnalysis) SubroutineLengths() *SubroutineLengths { return a.subLengths }

// CodeSize returns the length of the analyzed code.
func (a *CodeAnalysis) CodeSize() uint64 { return a.subLengths.Len() }

// Size returns the estimated memory footprint of the analysis in bytes.
func (a *CodeAnalysis) Size() uint64 {
	return a.jumpDests.size() + a.subEntries.size() + a.subLengths.size() + analysisOverhead
}
