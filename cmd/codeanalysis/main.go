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

// codeanalysis inspects EVM byte-code the way the interpreter's analysis
// cache sees it: jump destinations, subroutine entries and their lengths.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const configMetadataKey = "config"

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	cacheSizeFlag = &cli.Uint64Flag{
		Name:  "cache.size",
		Usage: "Byte budget of the shared analysis cache",
		Value: defaultConfig.Cache.MaxSize,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: defaultConfig.Log.Verbosity,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of the terminal",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Serve Prometheus metrics on the given listening address (e.g. 127.0.0.1:6060)",
	}
	codeFlag = &cli.StringFlag{
		Name:  "code",
		Usage: "EVM code as hex, instead of reading it from a file",
	}
)

var metricsServer *http.Server

func newApp() *cli.App {
	return &cli.App{
		Name:  "codeanalysis",
		Usage: "inspect EVM jump destinations and subroutines",
		Flags: []cli.Flag{
			configFileFlag,
			cacheSizeFlag,
			verbosityFlag,
			logFileFlag,
			logJSONFlag,
			metricsAddrFlag,
		},
		Commands: []*cli.Command{
			analyzeCommand,
			disasmCommand,
			warmCommand,
			dumpConfigCommand,
		},
		Before: setup,
		After:  teardown,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, installs the root logger and starts the
// metrics endpoint if requested.
func setup(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	ctx.App.Metadata = map[string]interface{}{configMetadataKey: cfg}

	if err := setupLogging(cfg.Log, ctx.App.ErrWriter); err != nil {
		return err
	}
	log.Debug("Loaded configuration",
		"cache", common.StorageSize(cfg.Cache.MaxSize),
		"verbosity", cfg.Log.Verbosity,
		"logfile", cfg.Log.File)

	if cfg.Metrics.Addr != "" {
		startMetricsServer(cfg.Metrics.Addr)
	}
	return nil
}

func teardown(ctx *cli.Context) error {
	if metricsServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsServer.Shutdown(shutdownCtx)
}

// configFrom returns the configuration stashed by setup.
func configFrom(ctx *cli.Context) codeAnalysisConfig {
	if cfg, ok := ctx.App.Metadata[configMetadataKey].(codeAnalysisConfig); ok {
		return cfg
	}
	return defaultConfig
}

func setupLogging(cfg logConfig, stderr io.Writer) error {
	var (
		output   io.Writer
		useColor bool
	)
	if cfg.File != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
	} else {
		output = stderr
		if output == nil {
			output = os.Stderr
		}
		if output == os.Stderr {
			useColor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
			if useColor {
				output = colorable.NewColorableStderr()
			}
		}
	}
	var handler slog.Handler
	if cfg.JSON {
		handler = log.JSONHandler(output)
	} else {
		handler = log.NewTerminalHandler(output, useColor)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(cfg.Verbosity))
	log.SetDefault(log.NewLogger(glogger))
	return nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("Starting metrics server", "addr", fmt.Sprintf("http://%s/metrics", addr))
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failure in running metrics server", "err", err)
		}
	}()
}
