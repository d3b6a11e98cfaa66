// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dashboard drives the fixed-rate render loop.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/relabs-tech/nmeatop/internal/status"
)

// DefaultRate is the render rate in Hz when none is configured.
const DefaultRate = 60.0

// Accepted render rates in Hz.
const (
	MinRate = 0.1
	MaxRate = 1000.0
)

// State of the render loop. Terminated is final.
type State int32

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Key is the part of an input event the loop cares about.
type Key int

const (
	KeyOther Key = iota
	KeyEscape
	KeyCtrlC
	KeyRune
)

// Event is one input event from the cancellation source.
type Event struct {
	Key  Key
	Rune rune
}

// IsQuit reports whether e ends the dashboard.
func (e Event) IsQuit() bool {
	return e.Key == KeyEscape || e.Key == KeyCtrlC
}

// Renderer draws one snapshot. An error is fatal to the loop.
type Renderer interface {
	Render(snap status.Snapshot) error
}

// Loop renders store snapshots at a fixed rate until a quit event arrives.
type Loop struct {
	store    *status.Store
	renderer Renderer
	events   <-chan Event
	interval time.Duration
	logger   log.Logger

	state  atomic.Int32
	frames atomic.Uint64
}

// New builds a loop rendering rate times per second. A non-positive rate
// selects DefaultRate; other rates are clamped to [MinRate, MaxRate].
func New(store *status.Store, renderer Renderer, events <-chan Event, rate float64, logger log.Logger) *Loop {
	switch {
	case rate <= 0:
		rate = DefaultRate
	case rate < MinRate:
		rate = MinRate
	case rate > MaxRate:
		rate = MaxRate
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Loop{
		store:    store,
		renderer: renderer,
		events:   events,
		interval: time.Duration(float64(time.Second) / rate),
		logger:   log.With(logger, "component", "dashboard"),
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Frames returns how many frames have been rendered.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Run races the render ticker against the event source. It returns nil once
// the loop is Terminated by a quit event, a closed event channel or ctx, and
// the renderer's error if drawing fails.
func (l *Loop) Run(ctx context.Context) error {
	if l.State() == Terminated {
		return nil
	}
	defer l.state.Store(int32(Terminated))

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	level.Info(l.logger).Log("msg", "render loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			level.Info(l.logger).Log("msg", "render loop cancelled")
			return nil

		case ev, ok := <-l.events:
			if !ok {
				level.Info(l.logger).Log("msg", "event source closed")
				return nil
			}
			if ev.IsQuit() {
				level.Info(l.logger).Log("msg", "quit requested", "frames", l.frames.Load())
				return nil
			}

		case <-ticker.C:
			// A quit that is already waiting wins over the tick.
			if l.quitPending() {
				level.Info(l.logger).Log("msg", "quit requested", "frames", l.frames.Load())
				return nil
			}
			if err := l.renderer.Render(l.store.Snapshot()); err != nil {
				level.Error(l.logger).Log("msg", "render failed", "err", err)
				return fmt.Errorf("dashboard: render: %w", err)
			}
			l.frames.Add(1)
		}
	}
}

// quitPending drains events that are already queued without blocking.
func (l *Loop) quitPending() bool {
	for {
		select {
		case ev, ok := <-l.events:
			if !ok || ev.IsQuit() {
				return true
			}
		default:
			return false
		}
	}
}
