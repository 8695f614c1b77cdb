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
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/core/vm"
	"github.com/equa/go-equa-codecache/crypto"
	"github.com/equa/go-equa-codecache/log"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var warmCommand = &cli.Command{
	Action:    warmCmd,
	Name:      "warm",
	Usage:     "Analyze many programs concurrently through one shared cache",
	ArgsUsage: "<hexfile> [<hexfile>...]",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "passes",
			Usage: "Number of times every program is looked up",
			Value: 2,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of concurrent lookups",
			Value: runtime.NumCPU(),
		},
	},
	Description: `
The warm command loads every given hex file and looks all of them up in a
single shared analysis cache from several goroutines at once, repeating the
lookups for the requested number of passes. It reports how the cache fared.`,
}

type program struct {
	file string
	hash common.Hash
	code []byte
}

func loadPrograms(files []string) ([]program, error) {
	programs := make([]program, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not load code from %s: %w", file, err)
		}
		code, err := common.ParseHex(string(data))
		if err != nil {
			return nil, fmt.Errorf("could not decode %s: %w", file, err)
		}
		programs = append(programs, program{file: file, hash: crypto.Keccak256Hash(code), code: code})
	}
	return programs, nil
}

func warmCmd(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errNoCode
	}
	programs, err := loadPrograms(ctx.Args().Slice())
	if err != nil {
		return err
	}
	var (
		cfg     = configFrom(ctx)
		cache   = vm.NewSharedCache(cfg.Cache.MaxSize)
		unique  = mapset.NewSet[common.Hash]()
		passes  = ctx.Int("passes")
		workers = ctx.Int("workers")
		table   = tablewriter.NewWriter(ctx.App.Writer)
	)
	table.SetHeader([]string{"Pass", "Lookups", "Entries", "Cached", "Elapsed"})

	for pass := 1; pass <= passes; pass++ {
		start := time.Now()

		g, gctx := errgroup.WithContext(ctx.Context)
		g.SetLimit(workers)
		for _, prog := range programs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cache.Get(prog.hash, prog.code)
				unique.Add(prog.hash)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		elapsed := time.Since(start)
		log.Info("Analysis pass complete", "pass", pass, "programs", len(programs), "entries", cache.Len(), "cached", common.StorageSize(cache.Size()), "elapsed", common.PrettyDuration(elapsed))

		table.Append([]string{
			fmt.Sprint(pass),
			fmt.Sprint(len(programs)),
			fmt.Sprint(cache.Len()),
			common.StorageSize(cache.Size()).String(),
			common.PrettyDuration(elapsed).String(),
		})
	}
	table.Render()

	fmt.Fprintf(ctx.App.Writer, "Unique programs: %d, cache budget: %v\n", unique.Cardinality(), common.StorageSize(cache.MaxSize()))
	return printCacheMetrics(ctx)
}

// printCacheMetrics prints the process-wide analysis cache counters.
func printCacheMetrics(ctx *cli.Context) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Metric", "Value"})
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "equa_vm_analysis_cache_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			table.Append([]string{strings.TrimPrefix(mf.GetName(), "equa_vm_analysis_cache_"), fmt.Sprint(value)})
		}
	}
	table.Render()
	return nil
}
