// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"encoding/json"
	"time"
)

// Unknown is shown for fields that are stale, absent or never written.
const Unknown = "unknown"

// Snapshot is a point-in-time copy of the store with staleness already
// resolved. It is a value type and safe to hand to other goroutines.
type Snapshot struct {
	At time.Time

	values  [numFields]Value
	present [numFields]bool
	written [numFields]time.Time
}

// Get returns the value of f if it was fresh when the snapshot was taken.
func (s Snapshot) Get(f Field) (Value, bool) {
	if !f.valid() || !s.present[f] {
		return Value{}, false
	}
	return s.values[f], true
}

// Float is Get for numeric fields.
func (s Snapshot) Float(f Field) (float64, bool) {
	v, ok := s.Get(f)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Written returns the slot timestamp copied together with the value.
func (s Snapshot) Written(f Field) time.Time {
	if !f.valid() {
		return time.Time{}
	}
	return s.written[f]
}

// Display returns the formatted value of f, or Unknown.
func (s Snapshot) Display(f Field) string {
	v, ok := s.Get(f)
	if !ok {
		return Unknown
	}
	return v.Format(f)
}

// MarshalJSON encodes the snapshot as an object keyed by field name. Fields
// without a fresh value are null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, numFields+1)
	out["at"] = s.At.UTC().Format(time.RFC3339Nano)
	for _, f := range Fields {
		v, ok := s.Get(f)
		switch {
		case !ok:
			out[f.String()] = nil
		case v.isFix:
			out[f.String()] = v.fix.String()
		default:
			out[f.String()] = v.num
		}
	}
	return json.Marshal(out)
}
