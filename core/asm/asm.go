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

// Package asm provides support for dealing with EVM assembly instructions (e.g., disassembling them).
package asm

import (
	"fmt"

	"github.com/equa/go-equa-codecache/core/vm"
	"github.com/holiman/uint256"
)

// Iterator for disassembled EVM instructions
type instructionIterator struct {
	code    []byte
	pc      uint64
	arg     []byte
	op      vm.OpCode
	error   error
	started bool
}

// NewInstructionIterator creates a new instruction iterator.
func NewInstructionIterator(code []byte) *instructionIterator {
	it := new(instructionIterator)
	it.code = code
	return it
}

// Next returns true if there is a next instruction and moves on.
func (it *instructionIterator) Next() bool {
	if it.error != nil || uint64(len(it.code)) <= it.pc {
		// We previously reached an error or the end.
		return false
	}

	if it.started {
		// Since the iteration has been already started we move to the next instruction.
		if it.arg != nil {
			it.pc += uint64(len(it.arg))
		}
		it.pc++
	} else {
		// We start the iteration from the first instruction.
		it.started = true
	}

	if uint64(len(it.code)) <= it.pc {
		// We reached the end.
		return false
	}

	it.op = vm.OpCode(it.code[it.pc])
	if n := it.op.PushBytes(); n > 0 {
		u := it.pc + 1 + uint64(n)
		if uint64(len(it.code)) < u {
			it.error = fmt.Errorf("incomplete push instruction at %v", it.pc)
			return false
		}
		it.arg = it.code[it.pc+1 : u]
	} else {
		it.arg = nil
	}
	return true
}

// Error returns any error that may have been encountered.
func (it *instructionIterator) Error() error {
	return it.error
}

// PC returns the PC of the current instruction.
func (it *instructionIterator) PC() uint64 {
	return it.pc
}

// Op returns the opcode of the current instruction.
func (it *instructionIterator) Op() vm.OpCode {
	return it.op
}

// Arg returns the argument of the current instruction.
func (it *instructionIterator) Arg() []byte {
	return it.arg
}

// Instruction is a single disassembled instruction.
type Instruction struct {
	PC  uint64
	Op  vm.OpCode
	Arg *uint256.Int // nil unless Op is a push carrying data
}

// String renders the instruction as "pc: OP [arg]".
func (ins Instruction) String() string {
	if ins.Arg != nil {
		return fmt.Sprintf("%05x: %v %s", ins.PC, ins.Op, ins.Arg.Hex())
	}
	return fmt.Sprintf("%05x: %v", ins.PC, ins.Op)
}

// Disassemble returns all disassembled instructions of the code. On a
// truncated trailing push the instructions before it are returned along
// with the error.
func Disassemble(code []byte) ([]Instruction, error) {
	var instrs []Instruction

	it := NewInstructionIterator(code)
	for it.Next() {
		ins := Instruction{PC: it.PC(), Op: it.Op()}
		if arg := it.Arg(); arg != nil {
			ins.Arg = new(uint256.Int).SetBytes(arg)
		}
		instrs = append(instrs, ins)
	}
	return instrs, it.Error()
}
