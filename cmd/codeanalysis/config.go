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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/equa/go-equa-codecache/core/vm"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type logConfig struct {
	Verbosity  int    // Legacy verbosity, 0 (silent) to 5 (trace)
	File       string `toml:",omitempty"`
	JSON       bool
	MaxSize    int // Megabytes per rotated log file
	MaxBackups int
	Compress   bool
}

type metricsConfig struct {
	Addr string `toml:",omitempty"`
}

type codeAnalysisConfig struct {
	Cache   vm.CacheConfig
	Log     logConfig
	Metrics metricsConfig
}

var defaultConfig = codeAnalysisConfig{
	Cache: vm.DefaultCacheConfig,
	Log: logConfig{
		Verbosity:  3,
		MaxSize:    100,
		MaxBackups: 10,
	},
}

func loadConfig(file string, cfg *codeAnalysisConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) (codeAnalysisConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if ctx.IsSet(cacheSizeFlag.Name) {
		cfg.Cache.MaxSize = ctx.Uint64(cacheSizeFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	if ctx.IsSet(logJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(logJSONFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.Metrics.Addr = ctx.String(metricsAddrFlag.Name)
	}
	cfg.Cache = cfg.Cache.Sanitize()
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := configFrom(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
