// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/nmeatop/internal/config"
	"github.com/relabs-tech/nmeatop/internal/dashboard"
	"github.com/relabs-tech/nmeatop/internal/ingest"
	"github.com/relabs-tech/nmeatop/internal/publish"
	"github.com/relabs-tech/nmeatop/internal/record"
	"github.com/relabs-tech/nmeatop/internal/render"
	"github.com/relabs-tech/nmeatop/internal/source"
	"github.com/relabs-tech/nmeatop/internal/status"
	"github.com/relabs-tech/nmeatop/internal/web"
)

// Screen is what the dashboard draws on: a renderer that also delivers key
// events and must be restored when done.
type Screen interface {
	dashboard.Renderer
	Events() <-chan dashboard.Event
	Close() error
}

// RunDashboard opens the line source, takes over the terminal and runs every
// activity until the user quits, ctx is cancelled or something fails.
func RunDashboard(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	src, err := source.Open(cfg.LineSource())
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	store := status.New(cfg.Timeout)
	task := ingest.New(src, store, logger)

	term, err := render.NewTerminal(Footer(task, store))
	if err != nil {
		return err
	}
	defer term.Close()

	return run(ctx, cfg, store, task, term, logger)
}

func run(ctx context.Context, cfg *config.Config, store *status.Store, task *ingest.Task, screen Screen, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	var rec *record.Recorder
	if cfg.Record.Path != "" {
		r, closer, err := record.Open(store, cfg.Record, logger)
		if err != nil {
			return err
		}
		defer closer.Close()
		rec = r
	}

	var pub *publish.Publisher
	if cfg.Publish.Enabled() {
		p, err := publish.Dial(store, cfg.Publish, logger)
		if err != nil {
			return err
		}
		pub = p
	}

	var renderer dashboard.Renderer = screen
	if cfg.OLED.Enable {
		oled, err := render.OpenOLED(cfg.OLED, logger)
		if err != nil {
			level.Warn(logger).Log("msg", "display disabled", "err", err)
		} else {
			defer oled.Close()
			renderer = render.Multi{screen, oled}
		}
	}

	// Leaving the render loop for any reason stops everything else.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loop := dashboard.New(store, renderer, screen.Events(), cfg.Rate, logger)
	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})

	g.Go(func() error { return task.Run(gctx) })

	if cfg.Web.Addr != "" {
		srv := web.NewServer(store, cfg.Web, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if rec != nil {
		g.Go(func() error { return rec.Run(gctx) })
	}

	if pub != nil {
		g.Go(func() error { return pub.Run(gctx) })
	}

	err := g.Wait()
	stats := task.Stats()
	level.Info(logger).Log("msg", "dashboard stopped", "frames", loop.Frames(),
		"lines", stats.Lines, "decoded", stats.Decoded, "dropped", stats.Dropped)
	return err
}

// Footer summarizes ingestion for the bottom line of the terminal.
func Footer(task *ingest.Task, store *status.Store) func() string {
	return func() string {
		s := task.Stats()
		return fmt.Sprintf("lines %d  decoded %d  dropped %d  timeout %s  [Esc] quit",
			s.Lines, s.Decoded, s.Dropped, store.Timeout())
	}
}
