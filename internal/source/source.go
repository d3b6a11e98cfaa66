// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package source provides the line streams the ingestion task reads from.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// LineSource yields text lines one at a time. NextLine returns io.EOF once
// the source is exhausted and ctx.Err() if ctx ends first.
type LineSource interface {
	NextLine(ctx context.Context) (string, error)
	Close() error
}

const (
	initialBufSize = 128
	maxLineSize    = 4096
)

type lineResult struct {
	line string
	err  error
}

// Reader adapts any io.Reader into a LineSource. A pump goroutine scans the
// reader so NextLine can give up on cancellation even while the underlying
// read blocks (stdin, serial ports).
type Reader struct {
	rc    io.ReadCloser
	lines chan lineResult
	done  chan struct{}

	// err is the terminal error once the pump has finished. NextLine has a
	// single caller so it needs no lock.
	err error

	startOnce sync.Once
	closeOnce sync.Once
}

// NewReader wraps rc. Closing the Reader closes rc.
func NewReader(rc io.ReadCloser) *Reader {
	return &Reader{
		rc:    rc,
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
}

func (r *Reader) pump() {
	scanner := bufio.NewScanner(r.rc)
	scanner.Buffer(make([]byte, 0, initialBufSize), maxLineSize)

	for scanner.Scan() {
		select {
		case r.lines <- lineResult{line: scanner.Text()}:
		case <-r.done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case r.lines <- lineResult{err: err}:
	case <-r.done:
	}
}

// NextLine blocks until a line is available, the reader ends or ctx is done.
func (r *Reader) NextLine(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.startOnce.Do(func() { go r.pump() })

	select {
	case <-r.done:
		return "", io.EOF
	default:
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
		return "", io.EOF
	case res := <-r.lines:
		if res.err != nil {
			select {
			case <-r.done:
				// read failed because we were closed
				res.err = io.EOF
			default:
			}
			r.err = res.err
		}
		return res.line, res.err
	}
}

// Close stops the pump and closes the wrapped reader.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.rc.Close()
	})
	return err
}

// OpenFile opens path for reading.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open file %s: %w", path, err)
	}
	return NewReader(f), nil
}

// Stdin reads the process standard input.
func Stdin() *Reader {
	return NewReader(io.NopCloser(os.Stdin))
}
