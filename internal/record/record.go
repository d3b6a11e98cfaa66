// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record appends periodic snapshots of the status store to a CSV
// track file.
package record

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gocarina/gocsv"

	"github.com/relabs-tech/nmeatop/internal/status"
)

const DefaultInterval = time.Second

// Config enables the recorder when Path is set.
type Config struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// Row is one line of the track file. Unknown values are empty cells.
type Row struct {
	Time      string `csv:"time"`
	Latitude  string `csv:"latitude"`
	Longitude string `csv:"longitude"`
	Altitude  string `csv:"altitude"`
	Heading   string `csv:"heading"`
	SOG       string `csv:"sog"`
	COG       string `csv:"cog"`
	Fix       string `csv:"fix"`
}

// RowFromSnapshot flattens a snapshot.
func RowFromSnapshot(snap status.Snapshot) Row {
	cell := func(f status.Field) string {
		v, ok := snap.Get(f)
		if !ok {
			return ""
		}
		if n, isNum := v.Float(); isNum {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return v.String()
	}
	return Row{
		Time:      snap.At.UTC().Format(time.RFC3339Nano),
		Latitude:  cell(status.Lat),
		Longitude: cell(status.Lon),
		Altitude:  cell(status.Alt),
		Heading:   cell(status.Heading),
		SOG:       cell(status.SOG),
		COG:       cell(status.COG),
		Fix:       cell(status.FixTypeField),
	}
}

// Recorder writes rows to w. The header goes out with the first row unless
// the destination already had content.
type Recorder struct {
	store    *status.Store
	w        io.Writer
	interval time.Duration
	logger   log.Logger

	needHeader bool
	rows       int
}

// New wraps an already open writer. Pass header=false when appending to a
// file that already has one.
func New(store *status.Store, w io.Writer, header bool, interval time.Duration, logger log.Logger) *Recorder {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Recorder{
		store:      store,
		w:          w,
		interval:   interval,
		logger:     log.With(logger, "component", "record"),
		needHeader: header,
	}
}

// Open appends to cfg.Path, creating it if needed.
func Open(store *status.Store, cfg Config, logger log.Logger) (*Recorder, io.Closer, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("record: open %s: %w", cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("record: stat %s: %w", cfg.Path, err)
	}
	return New(store, f, info.Size() == 0, cfg.Interval, logger), f, nil
}

// Write appends one row for the current snapshot.
func (r *Recorder) Write() error {
	rows := []Row{RowFromSnapshot(r.store.Snapshot())}

	var err error
	if r.needHeader {
		err = gocsv.Marshal(rows, r.w)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, r.w)
	}
	if err != nil {
		return fmt.Errorf("record: write row: %w", err)
	}
	r.needHeader = false
	r.rows++
	return nil
}

// Run writes a row every interval until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	level.Info(r.logger).Log("msg", "recorder started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "recorder stopped", "rows", r.rows)
			return nil
		case <-ticker.C:
			if err := r.Write(); err != nil {
				return err
			}
		}
	}
}
