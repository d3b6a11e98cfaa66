// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"

	"github.com/relabs-tech/nmeatop/internal/app"
	"github.com/relabs-tech/nmeatop/internal/config"
	"github.com/relabs-tech/nmeatop/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("nmeatop", flag.ExitOnError)
	printVersion := fs.Bool("version", false, "Print this builds version information")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: nmeatop [flags] [source]\n\n")
		fs.PrintDefaults()
	}

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		return 1
	}
	if *printVersion {
		fmt.Println(version.Print("nmeatop"))
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		return 1
	}
	defer closer.Close()
	level.Info(logger).Log("msg", "starting nmeatop", "version", version.Info(), "source", cfg.Source.Type, "path", cfg.Source.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The terminal is restored by the time RunDashboard returns.
	if err := app.RunDashboard(ctx, cfg, logger); err != nil {
		level.Error(logger).Log("msg", "fatal", "err", err)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	level.Info(logger).Log("msg", "shutdown complete")
	return 0
}
