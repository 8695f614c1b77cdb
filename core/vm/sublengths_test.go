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
	"math/bits"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"pgregory.net/rapid"
)

func newOffsetSet(size uint64, offsets ...uint64) OffsetSet {
	set := bitset.New(uint(size))
	for _, pos := range offsets {
		set.Set(uint(pos))
	}
	return OffsetSet{set}
}

func TestSubroutineLengthsStoreFind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		size       uint64
		start      uint64
		length     uint64
		boundaries []uint64
		want       uint64
	}{
		{size: 16, start: 0, length: 12, boundaries: []uint64{12}, want: 12},
		{size: 16, start: 3, length: 0, boundaries: []uint64{3, 4}, want: 0},
		{size: 16, start: 4, length: 6, boundaries: []uint64{4, 10}, want: 6},
		{size: 16, start: 10, length: 6, boundaries: []uint64{4, 10}, want: 6},
		// Bits past the next boundary belong to another subroutine.
		{size: 16, start: 0, length: 3, boundaries: []uint64{1}, want: 1},
		// Starting beyond the bitmap never reads anything.
		{size: 16, start: 16, length: 1, want: 0},
		{size: 16, start: 100, length: 1, want: 0},
	}
	for i, test := range tests {
		lengths := newSubroutineLengths(test.size)
		lengths.store(test.start, test.length)
		have := lengths.FindLength(test.start, newOffsetSet(test.size, test.boundaries...))
		if have != test.want {
			t.Errorf("test %d: expected: %d, got: %d", i, test.want, have)
		}
	}
}

func TestSubroutineLengthsMaxWidth(t *testing.T) {
	t.Parallel()
	lengths := newSubroutineLengths(128)
	lengths.store(0, math.MaxUint64)

	// The 64th bit is never read back.
	have := lengths.FindLength(0, OffsetSet{})
	if want := uint64(1)<<MaxSubroutineLengthBits - 1; have != want {
		t.Errorf("expected: %#x, got: %#x", want, have)
	}
	lengths = newSubroutineLengths(128)
	lengths.store(0, math.MaxInt64)
	if have := lengths.FindLength(0, OffsetSet{}); have != math.MaxInt64 {
		t.Errorf("expected: %#x, got: %#x", uint64(math.MaxInt64), have)
	}
}

func TestSubroutineLengthsCapacity(t *testing.T) {
	t.Parallel()
	lengths := newSubroutineLengths(4)
	lengths.store(2, 0xff)
	if have := lengths.bits.Len(); have != 4 {
		t.Fatalf("bitmap grew to %d bits", have)
	}
	if have := lengths.FindLength(2, OffsetSet{}); have != 3 {
		t.Errorf("expected: %d, got: %d", 3, have)
	}
}

func TestSubroutineLengthsRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.Uint64Range(1, 512).Draw(t, "size")
		start := rapid.Uint64Range(0, size-1).Draw(t, "start")
		next := rapid.Uint64Range(start+1, size).Draw(t, "next")

		width := next - start
		if width > MaxSubroutineLengthBits {
			width = MaxSubroutineLengthBits
		}
		length := rapid.Uint64Range(0, uint64(1)<<width-1).Draw(t, "length")

		// Neighbouring subroutines write their own bits around ours.
		lengths := newSubroutineLengths(size)
		if next < size {
			lengths.store(next, size-next)
		}
		lengths.store(start, length)

		if bits.Len64(length) > int(width) {
			t.Fatalf("generated length %d wider than %d bits", length, width)
		}
		have := lengths.FindLength(start, newOffsetSet(size, start, next))
		if have != length {
			t.Fatalf("start %d next %d: expected: %d, got: %d", start, next, length, have)
		}
	})
}
