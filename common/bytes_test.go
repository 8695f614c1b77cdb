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

package common

import (
	"bytes"
	"errors"
	"testing"
)

func TestFromHex(t *testing.T) {
	t.Parallel()
	input := "0x01"
	expected := []byte{1}
	result := FromHex(input)
	if !bytes.Equal(expected, result) {
		t.Errorf("Expected %x got %x", expected, result)
	}
	if got := FromHex("0x1"); !bytes.Equal(got, []byte{1}) {
		t.Errorf("odd length: expected %x got %x", []byte{1}, got)
	}
}

func TestParseHex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  []byte
		err   error
	}{
		{"", []byte{}, nil},
		{"0x", []byte{}, nil},
		{"  0x5b5c\n", []byte{0x5b, 0x5c}, nil},
		{"5BCC5C", []byte{0x5b, 0xcc, 0x5c}, nil},
		{"0x5", nil, ErrInvalidHex},
		{"zz", nil, ErrInvalidHex},
	}
	for _, test := range tests {
		got, err := ParseHex(test.input)
		if !errors.Is(err, test.err) {
			t.Errorf("input %q: expected err %v, got: %v", test.input, test.err, err)
			continue
		}
		if err == nil && !bytes.Equal(got, test.want) {
			t.Errorf("input %q: expected: %x, got: %x", test.input, test.want, got)
		}
	}
}

func TestHashText(t *testing.T) {
	t.Parallel()
	h := HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	text, err := h.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var dec Hash
	if err := dec.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if dec != h {
		t.Errorf("expected: %v, got: %v", h, dec)
	}
	if err := dec.UnmarshalText([]byte("0x1234")); err == nil {
		t.Error("expected error for short hash")
	}
}
