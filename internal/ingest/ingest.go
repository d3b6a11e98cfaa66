// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ingest runs the background task that feeds the status store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/relabs-tech/nmeatop/internal/gps"
	"github.com/relabs-tech/nmeatop/internal/source"
	"github.com/relabs-tech/nmeatop/internal/status"
)

// Stats counts what the task has seen so far.
type Stats struct {
	Lines   uint64
	Decoded uint64
	Dropped uint64
}

// Task reads lines from a source and writes decoded fields into a store.
// The store is the only thing it shares with the rest of the program.
type Task struct {
	src    source.LineSource
	store  *status.Store
	logger log.Logger

	lines   atomic.Uint64
	decoded atomic.Uint64
	dropped atomic.Uint64
}

// New returns a task that has not started yet.
func New(src source.LineSource, store *status.Store, logger log.Logger) *Task {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Task{
		src:    src,
		store:  store,
		logger: log.With(logger, "component", "ingest"),
	}
}

// Run consumes the source until it ends, fails or ctx is cancelled.
//
// End of source and cancellation return nil: the dashboard keeps running
// and fields decay to unknown once the staleness timeout passes. Any other
// read error is returned and is fatal to the process.
func (t *Task) Run(ctx context.Context) error {
	level.Info(t.logger).Log("msg", "ingestion started")

	for {
		line, err := t.src.NextLine(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			level.Info(t.logger).Log("msg", "source exhausted, ingestion stopped", "lines", t.lines.Load())
			return nil
		case ctx.Err() != nil:
			level.Info(t.logger).Log("msg", "ingestion cancelled")
			return nil
		default:
			level.Error(t.logger).Log("msg", "source read failed", "err", err)
			return fmt.Errorf("ingest: read line: %w", err)
		}

		t.lines.Add(1)
		t.handle(line)
	}
}

func (t *Task) handle(line string) {
	update, ok := gps.Decode(line)
	if !ok {
		// noisy receivers emit partial and unsupported sentences all the time
		t.dropped.Add(1)
		level.Debug(t.logger).Log("msg", "line dropped", "line", line)
		return
	}
	t.decoded.Add(1)
	t.store.Apply(update)
}

// Stats returns the counters. Safe to call from any goroutine.
func (t *Task) Stats() Stats {
	return Stats{
		Lines:   t.lines.Load(),
		Decoded: t.decoded.Load(),
		Dropped: t.dropped.Load(),
	}
}
