// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"fmt"
	"strconv"
)

// Field identifies one of the tracked telemetry quantities.
type Field int

const (
	Lat Field = iota
	Lon
	Alt
	Heading
	SOG
	COG
	FixTypeField

	numFields
)

// Fields lists every tracked field in display order.
var Fields = [numFields]Field{Lat, Lon, Alt, Heading, SOG, COG, FixTypeField}

var fieldNames = [numFields]string{
	Lat:          "latitude",
	Lon:          "longitude",
	Alt:          "altitude",
	Heading:      "heading",
	SOG:          "sog",
	COG:          "cog",
	FixTypeField: "fix",
}

func (f Field) String() string {
	if !f.valid() {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

func (f Field) valid() bool {
	return f >= 0 && f < numFields
}

// FixType is the fix-quality label reported by a GGA sentence.
type FixType int

const (
	FixInvalid FixType = iota
	FixGps
	FixDGps
	FixPps
	FixRtk
	FixFloatRtk
	FixEstimated
	FixManual
	FixSimulation
)

var fixTypeNames = [...]string{
	FixInvalid:    "Invalid",
	FixGps:        "Gps",
	FixDGps:       "DGps",
	FixPps:        "Pps",
	FixRtk:        "Rtk",
	FixFloatRtk:   "FloatRtk",
	FixEstimated:  "Estimated",
	FixManual:     "Manual",
	FixSimulation: "Simulation",
}

func (t FixType) String() string {
	if t < 0 || int(t) >= len(fixTypeNames) {
		return "FixType(" + strconv.Itoa(int(t)) + ")"
	}
	return fixTypeNames[t]
}

// Value is the last known content of a slot: a number for the geometric and
// kinematic fields, a FixType for the fix field.
type Value struct {
	num   float64
	fix   FixType
	isFix bool
}

// Number wraps a float64 reading.
func Number(v float64) Value { return Value{num: v} }

// Fix wraps a fix-quality label.
func Fix(t FixType) Value { return Value{fix: t, isFix: true} }

// Float returns the numeric reading. ok is false for fix labels.
func (v Value) Float() (float64, bool) {
	return v.num, !v.isFix
}

// FixType returns the fix label. ok is false for numeric readings.
func (v Value) FixType() (FixType, bool) {
	return v.fix, v.isFix
}

func (v Value) String() string {
	if v.isFix {
		return v.fix.String()
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// Format renders v the way the dashboard shows values of field f.
func (v Value) Format(f Field) string {
	if v.isFix {
		return v.fix.String()
	}
	switch f {
	case Lat, Lon:
		return fmt.Sprintf("%.6f", v.num)
	default:
		return fmt.Sprintf("%.1f", v.num)
	}
}
