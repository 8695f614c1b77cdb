// Copyright 2017 The go-equa Authors
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

package asm

import (
	"testing"

	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/core/vm"
)

// Tests disassembling instructions
func TestInstructionIterator(t *testing.T) {
	t.Parallel()
	for i, tc := range []struct {
		code    string
		want    int
		wantErr string
	}{
		{"", 0, ""},
		{"6100", 0, "incomplete push instruction at 0"},
		{"61000000", 2, ""},
		{"5F00", 2, ""},
		{"5BCC5C", 3, ""},
	} {
		var (
			have int
			code = common.FromHex(tc.code)
			it   = NewInstructionIterator(code)
		)
		for it.Next() {
			have++
		}
		var haveErr = ""
		if it.Error() != nil {
			haveErr = it.Error().Error()
		}
		if haveErr != tc.wantErr {
			t.Errorf("test %d: encountered error: %q want %q", i, haveErr, tc.wantErr)
			continue
		}
		if have != tc.want {
			t.Errorf("test %d: wrong instruction count, have %d want %d", i, have, tc.want)
		}
	}
}

func TestDisassemble(t *testing.T) {
	t.Parallel()
	code := common.FromHex("6800000000000000000c5e005c60115e5d5c5d")
	instrs, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"00000: PUSH9 0xc",
		"0000a: JUMPSUB",
		"0000b: STOP",
		"0000c: BEGINSUB",
		"0000d: PUSH1 0x11",
		"0000f: JUMPSUB",
		"00010: RETURNSUB",
		"00011: BEGINSUB",
		"00012: RETURNSUB",
	}
	if len(instrs) != len(want) {
		t.Fatalf("expected: %d instructions, got: %d", len(want), len(instrs))
	}
	for i, ins := range instrs {
		if ins.String() != want[i] {
			t.Errorf("instruction %d: expected: %q, got: %q", i, want[i], ins.String())
		}
	}
	// Every BEGINSUB the disassembler sees is a subroutine entry to the analyzer.
	analysis := vm.AnalyzeCode(code)
	for _, ins := range instrs {
		if ins.Op == vm.BEGINSUB && !analysis.ValidSubroutineEntry(ins.PC) {
			t.Errorf("BEGINSUB at %d not an entry point", ins.PC)
		}
	}
}

func TestDisassembleTruncated(t *testing.T) {
	t.Parallel()
	instrs, err := Disassemble(common.FromHex("5B615B"))
	if err == nil {
		t.Fatal("expected error on truncated push")
	}
	if len(instrs) != 1 || instrs[0].Op != vm.JUMPDEST {
		t.Errorf("expected leading JUMPDEST, got %v", instrs)
	}
}
