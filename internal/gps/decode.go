// Package gps turns NMEA 0183 sentences into status store updates.
package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/nmeatop/internal/status"
)

// Raw field positions (after the address field) of the optional values we
// need to tell apart from a literal zero. go-nmea reports empty numbers as 0.
const (
	ggaLat      = 1
	ggaLon      = 3
	ggaQuality  = 5
	ggaAltitude = 8

	rmcLat    = 2
	rmcLon    = 4
	rmcSpeed  = 6
	rmcCourse = 7

	vtgTrueTrack = 0
	vtgKnots     = 4

	hdtHeading = 0
)

// go-nmea rejects GGA quality digits above 6, which would drop the position
// of every Manual or Simulation fix. GGA is parsed here instead and the
// digit is left to FixTypeFromQuality.
var parser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		nmea.TypeGGA: parseGGA,
	},
}

func parseGGA(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := nmea.GGA{
		BaseSentence:  s,
		Time:          p.Time(0, "time"),
		Latitude:      p.LatLong(1, 2, "latitude"),
		Longitude:     p.LatLong(3, 4, "longitude"),
		FixQuality:    p.String(ggaQuality, "fix quality"),
		NumSatellites: p.Int64(6, "number of satellites"),
		HDOP:          p.Float64(7, "hdop"),
		Altitude:      p.Float64(ggaAltitude, "altitude"),
		Separation:    p.Float64(10, "separation"),
		DGPSAge:       p.String(12, "dgps age"),
		DGPSId:        p.String(13, "dgps id"),
	}
	return m, p.Err()
}

// Update lists the fields carried by one recognized sentence. Fields the
// sentence type does not carry are never part of it.
type Update []status.Entry

// Decode parses one line. ok is false when the line is malformed, fails its
// checksum or is not a sentence type the dashboard uses.
func Decode(line string) (Update, bool) {
	line = strings.TrimSpace(line)
	if line == "" || (line[0] != '$' && line[0] != '!') {
		return nil, false
	}

	sentence, err := parser.Parse(line)
	if err != nil {
		return nil, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		return fromGGA(sentence.(nmea.GGA)), true
	case nmea.TypeRMC:
		return fromRMC(sentence.(nmea.RMC)), true
	case nmea.TypeVTG:
		return fromVTG(sentence.(nmea.VTG)), true
	case nmea.TypeHDT:
		return fromHDT(sentence.(nmea.HDT)), true
	default:
		// GSA, GSV, GLL, ... carry nothing we track
		return nil, false
	}
}

func fromGGA(m nmea.GGA) Update {
	u := Update{
		optional(m.Fields, ggaLat, status.Lat, m.Latitude),
		optional(m.Fields, ggaLon, status.Lon, m.Longitude),
		optional(m.Fields, ggaAltitude, status.Alt, m.Altitude),
	}

	if t, ok := FixTypeFromQuality(m.FixQuality); ok && hasField(m.Fields, ggaQuality) {
		v := status.Fix(t)
		u = append(u, status.Entry{Field: status.FixTypeField, Value: &v})
	} else {
		u = append(u, absent(status.FixTypeField))
	}
	return u
}

func fromRMC(m nmea.RMC) Update {
	if m.Validity != nmea.ValidRMC {
		// receiver flagged the whole record as void
		return Update{absent(status.Lat), absent(status.Lon), absent(status.SOG), absent(status.COG)}
	}

	return Update{
		optional(m.Fields, rmcLat, status.Lat, m.Latitude),
		optional(m.Fields, rmcLon, status.Lon, m.Longitude),
		optional(m.Fields, rmcSpeed, status.SOG, m.Speed),
		optional(m.Fields, rmcCourse, status.COG, m.Course),
	}
}

func fromVTG(m nmea.VTG) Update {
	return Update{
		optional(m.Fields, vtgTrueTrack, status.COG, m.TrueTrack),
		optional(m.Fields, vtgKnots, status.SOG, m.GroundSpeedKnots),
	}
}

func fromHDT(m nmea.HDT) Update {
	return Update{optional(m.Fields, hdtHeading, status.Heading, m.Heading)}
}

func hasField(fields []string, i int) bool {
	return i < len(fields) && strings.TrimSpace(fields[i]) != ""
}

func optional(fields []string, i int, f status.Field, v float64) status.Entry {
	if !hasField(fields, i) {
		return absent(f)
	}
	return number(f, v)
}

func number(f status.Field, v float64) status.Entry {
	n := status.Number(v)
	return status.Entry{Field: f, Value: &n}
}

func absent(f status.Field) status.Entry {
	return status.Entry{Field: f}
}
