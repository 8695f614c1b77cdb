// Copyright 2024 The go-equa Authors
// This file is part of go-equa.
//
// go-equa is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-equa is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-equa. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/core/asm"
	"github.com/equa/go-equa-codecache/core/vm"
	"github.com/equa/go-equa-codecache/crypto"
	"github.com/equa/go-equa-codecache/log"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var errNoCode = errors.New("no code given, use --code or a file argument")

var analyzeCommand = &cli.Command{
	Action:    analyzeCmd,
	Name:      "analyze",
	Usage:     "List the jump destinations and subroutines of EVM code",
	ArgsUsage: "<hexfile>",
	Flags:     []cli.Flag{codeFlag},
	Description: `
The analyze command scans the code once, exactly as the interpreter's shared
analysis cache does, and prints every valid JUMPDEST and BEGINSUB offset
together with the length of each subroutine.`,
}

var disasmCommand = &cli.Command{
	Action:    disasmCmd,
	Name:      "disasm",
	Usage:     "Disassemble EVM code, highlighting jump and subroutine markers",
	ArgsUsage: "<hexfile>",
	Flags:     []cli.Flag{codeFlag},
}

// readCode loads hex encoded code from the --code flag or the first argument.
func readCode(ctx *cli.Context) ([]byte, error) {
	var input string
	switch {
	case ctx.IsSet(codeFlag.Name):
		input = ctx.String(codeFlag.Name)
	case ctx.NArg() > 0:
		data, err := os.ReadFile(ctx.Args().First())
		if err != nil {
			return nil, fmt.Errorf("could not load code from file: %w", err)
		}
		input = string(data)
	default:
		return nil, errNoCode
	}
	code, err := common.ParseHex(input)
	if err != nil {
		return nil, fmt.Errorf("could not decode code: %w", err)
	}
	return code, nil
}

func analyzeCmd(ctx *cli.Context) error {
	code, err := readCode(ctx)
	if err != nil {
		return err
	}
	var (
		cfg      = configFrom(ctx)
		cache    = vm.NewSharedCache(cfg.Cache.MaxSize)
		hash     = crypto.Keccak256Hash(code)
		analysis = cache.Get(hash, code)
		out      = ctx.App.Writer
	)
	log.Debug("Analyzed code", "hash", hash, "size", len(code), "footprint", common.StorageSize(analysis.Size()))

	fmt.Fprintf(out, "Code hash:           %v\n", hash)
	fmt.Fprintf(out, "Code size:           %d\n", len(code))
	fmt.Fprintf(out, "Jump destinations:   %d\n", analysis.JumpDests().Count())
	fmt.Fprintf(out, "Subroutine entries:  %d\n", analysis.SubroutineEntries().Count())
	fmt.Fprintf(out, "Analysis footprint:  %v\n", common.StorageSize(analysis.Size()))

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Offset", "Kind", "Subroutine length"})
	for _, row := range analysisRows(analysis) {
		table.Append(row)
	}
	table.Render()
	return nil
}

// analysisRows lists the markers of an analysis in offset order. The implicit
// subroutine at offset zero is listed unless a BEGINSUB already sits there.
func analysisRows(analysis *vm.CodeAnalysis) [][]string {
	var rows [][]string
	if analysis.CodeSize() > 0 && !analysis.ValidSubroutineEntry(0) {
		rows = append(rows, []string{"0x0", "(top level)", strconv.FormatUint(analysis.SubroutineLength(0), 10)})
	}
	for pc := uint64(0); pc < analysis.CodeSize(); pc++ {
		switch {
		case analysis.ValidJumpDest(pc):
			rows = append(rows, []string{fmt.Sprintf("%#x", pc), vm.JUMPDEST.String(), ""})
		case analysis.ValidSubroutineEntry(pc):
			rows = append(rows, []string{fmt.Sprintf("%#x", pc), vm.BEGINSUB.String(), strconv.FormatUint(analysis.SubroutineLength(pc), 10)})
		}
	}
	return rows
}

func disasmCmd(ctx *cli.Context) error {
	code, err := readCode(ctx)
	if err != nil {
		return err
	}
	var (
		jumpDest = color.New(color.FgGreen, color.Bold).SprintFunc()
		beginSub = color.New(color.FgCyan, color.Bold).SprintFunc()
		invalid  = color.New(color.FgRed).SprintFunc()
		out      = ctx.App.Writer
	)
	instrs, err := asm.Disassemble(code)
	for _, ins := range instrs {
		switch {
		case ins.Op == vm.JUMPDEST:
			fmt.Fprintln(out, jumpDest(ins))
		case ins.Op == vm.BEGINSUB:
			fmt.Fprintln(out, beginSub(ins))
		case !ins.Op.IsDefined():
			fmt.Fprintln(out, invalid(ins))
		default:
			fmt.Fprintln(out, ins)
		}
	}
	return err
}
