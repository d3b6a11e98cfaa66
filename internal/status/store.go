// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status holds the latest decoded telemetry shared between the
// ingestion task and every reader of the dashboard.
//
// Freshness is evaluated when a snapshot is taken: a slot older than the
// store timeout reads as absent. Nothing ever expires entries in the
// background.
package status

import (
	"sync"
	"time"
)

// DefaultTimeout is used when a store is built with a non-positive timeout.
const DefaultTimeout = 5 * time.Second

type slot struct {
	value   *Value    // nil = absent
	written time.Time // zero = never written
}

// Store keeps one slot per tracked field.
type Store struct {
	mu sync.RWMutex

	timeout time.Duration
	now     func() time.Time

	slots [numFields]slot
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store. Every field reads as absent until written.
func New(timeout time.Duration, opts ...Option) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Store{timeout: timeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the staleness timeout shared by all fields.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// Update stores v for f and refreshes its timestamp.
func (s *Store) Update(f Field, v Value) {
	s.write(f, &v)
}

// Clear records that the source reported f as absent. The slot counts as
// freshly written but has no value.
func (s *Store) Clear(f Field) {
	s.write(f, nil)
}

// Set stores v for f, or clears f when v is nil.
func (s *Store) Set(f Field, v *Value) {
	if v == nil {
		s.write(f, nil)
		return
	}
	cp := *v
	s.write(f, &cp)
}

func (s *Store) write(f Field, v *Value) {
	if !f.valid() {
		return
	}
	now := s.now()

	s.mu.Lock()
	sl := &s.slots[f]
	sl.value = v
	// A regressing clock must not move written backwards.
	if now.After(sl.written) {
		sl.written = now
	}
	s.mu.Unlock()
}

// Snapshot copies every slot under one read lock and resolves freshness
// against a single clock reading.
func (s *Store) Snapshot() Snapshot {
	now := s.now()

	s.mu.RLock()
	slots := s.slots
	s.mu.RUnlock()

	snap := Snapshot{At: now}
	for i, sl := range slots {
		snap.written[i] = sl.written
		if sl.value == nil || sl.written.IsZero() {
			continue
		}
		age := now.Sub(sl.written)
		if age < 0 {
			age = 0
		}
		if age < s.timeout {
			snap.values[i] = *sl.value
			snap.present[i] = true
		}
	}
	return snap
}

// Entry is one field carried by a decoded sentence. A nil Value reports the
// field as explicitly absent.
type Entry struct {
	Field Field
	Value *Value
}

// Apply writes every entry in order. Each entry is its own write; readers may
// observe any prefix of the batch.
func (s *Store) Apply(entries []Entry) {
	for _, e := range entries {
		s.Set(e.Field, e.Value)
	}
}

// LastWritten returns when f was last written, or the zero time if never.
// Renderers read write times from a Snapshot instead; this is for tests and
// diagnostics that need the slot without taking a snapshot.
func (s *Store) LastWritten(f Field) time.Time {
	if !f.valid() {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[f].written
}
