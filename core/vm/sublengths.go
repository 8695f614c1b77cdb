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
	"github.com/bits-and-blooms/bitset"
)

// MaxSubroutineLengthBits is the widest subroutine length FindLength will
// decode, independent of the host word size.
const MaxSubroutineLengthBits = 63

// SubroutineLengths stores the byte length of every subroutine in a single
// bitmap with one bit per byte of code. The length of the subroutine starting
// at offset s is written little-endian into the bits s, s+1, s+2, ... and is
// not terminated: its width is recovered when reading, from the position of
// the next subroutine entry. A subroutine always spans at least as many bytes
// as its length has bits, so neighbouring encodings never overlap.
type SubroutineLengths struct {
	bits     *bitset.BitSet
	capacity uint64
}

func newSubroutineLengths(size uint64) *SubroutineLengths {
	return &SubroutineLengths{
		bits:     bitset.New(uint(size)),
		capacity: size,
	}
}

// store writes length at offset start. A zero length writes nothing. Bits
// that would land beyond the capacity are dropped.
func (s *SubroutineLengths) store(start, length uint64) {
	for bit := start; length > 0; bit, length = bit+1, length>>1 {
		if bit >= s.capacity {
			return
		}
		if length&1 == 1 {
			s.bits.Set(uint(bit))
		}
	}
}

// FindLength decodes the length stored at start. Bits are read until the first
// offset in boundaries that lies strictly after start, the end of the bitmap,
// or MaxSubroutineLengthBits bits, whichever comes first.
func (s *SubroutineLengths) FindLength(start uint64, boundaries OffsetSet) uint64 {
	if start >= s.capacity {
		return 0
	}
	limit := s.capacity
	if next, ok := boundaries.Next(start + 1); ok && next < limit {
		limit = next
	}
	if start+MaxSubroutineLengthBits < limit {
		limit = start + MaxSubroutineLengthBits
	}
	var length uint64
	for i := uint64(0); start+i < limit; i++ {
		if s.bits.Test(uint(start + i)) {
			length |= 1 << i
		}
	}
	return length
}

// Len returns the capacity of the bitmap in bits.
func (s *SubroutineLengths) Len() uint64 {
	return s.capacity
}

func (s *SubroutineLengths) size() uint64 {
	return bitmapBytes(s.capacity)
}
