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

// OffsetSet is a read-only set of code offsets, backed by a bitmap with one
// bit per byte of analyzed code. It is shared between every holder of a
// cached analysis and offers no way to modify it.
type OffsetSet struct {
	bits *bitset.BitSet
}

// Contains reports whether pos is a member of the set.
func (s OffsetSet) Contains(pos uint64) bool {
	if s.bits == nil || pos >= uint64(s.bits.Len()) {
		return false
	}
	return s.bits.Test(uint(pos))
}

// Len returns the capacity of the set in bits, which equals the length of
// the analyzed code.
func (s OffsetSet) Len() uint64 {
	if s.bits == nil {
		return 0
	}
	return uint64(s.bits.Len())
}

// Count returns the number of offsets in the set.
func (s OffsetSet) Count() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.Count())
}

// Next returns the first member at or after pos.
func (s OffsetSet) Next(pos uint64) (uint64, bool) {
	if s.bits == nil || pos >= uint64(s.bits.Len()) {
		return 0, false
	}
	next, ok := s.bits.NextSet(uint(pos))
	return uint64(next), ok
}

// Offsets returns the members of the set in ascending order.
func (s OffsetSet) Offsets() []uint64 {
	offsets := make([]uint64, 0, s.Count())
	for pos, ok := s.Next(0); ok; pos, ok = s.Next(pos + 1) {
		offsets = append(offsets, pos)
	}
	return offsets
}

// Equal reports whether both sets have the same capacity and members.
func (s OffsetSet) Equal(other OffsetSet) bool {
	if s.bits == nil || other.bits == nil {
		return s.Len() == other.Len() && s.Count() == other.Count()
	}
	return s.bits.Equal(other.bits)
}

// size returns the number of bytes held by the backing bitmap.
func (s OffsetSet) size() uint64 {
	return bitmapBytes(s.Len())
}

// bitmapBytes is the size of the word array needed to hold n bits.
func bitmapBytes(n uint64) uint64 {
	return (n + 63) / 64 * 8
}
