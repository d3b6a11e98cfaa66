package gps

import "github.com/relabs-tech/nmeatop/internal/status"

// fixQualities maps the GGA fix-quality digit onto the dashboard labels.
// Every digit defined by NMEA 0183 4.x has an entry; fix_test.go checks the
// table stays complete.
var fixQualities = map[string]status.FixType{
	"0": status.FixInvalid,
	"1": status.FixGps,
	"2": status.FixDGps,
	"3": status.FixPps,
	"4": status.FixRtk,
	"5": status.FixFloatRtk,
	"6": status.FixEstimated,
	"7": status.FixManual,
	"8": status.FixSimulation,
}

// FixTypeFromQuality converts a GGA quality field. ok is false for an empty
// or undefined digit.
func FixTypeFromQuality(q string) (status.FixType, bool) {
	t, ok := fixQualities[q]
	return t, ok
}
