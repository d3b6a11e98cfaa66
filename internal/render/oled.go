// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/nmeatop/internal/status"
)

// OLEDConfig describes an SSD1306 128x64 display on an I2C bus.
type OLEDConfig struct {
	Enable bool `yaml:"enable"`
	// Bus is the periph bus name; empty picks the first bus.
	Bus          string        `yaml:"bus"`
	Interval     time.Duration `yaml:"interval"`
	PageInterval time.Duration `yaml:"page_interval"`
}

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13

	defaultOLEDInterval = 200 * time.Millisecond
	defaultPageInterval = 3 * time.Second
)

// Two pages because four 7x13 lines is all a 64 pixel panel holds.
var oledPages = [][]status.Field{
	{status.Lat, status.Lon, status.Alt, status.FixTypeField},
	{status.Heading, status.SOG, status.COG},
}

var oledLabels = map[status.Field]string{
	status.Lat:          "LAT",
	status.Lon:          "LON",
	status.Alt:          "ALT",
	status.Heading:      "HDG",
	status.SOG:          "SOG",
	status.COG:          "COG",
	status.FixTypeField: "FIX",
}

type display interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// OLED mirrors the dashboard on a small display. It throttles itself to its
// own interval; panel errors are logged and never stop the dashboard.
type OLED struct {
	dev    display
	closer io.Closer
	logger log.Logger
	now    func() time.Time

	interval     time.Duration
	pageInterval time.Duration

	start    time.Time
	lastDraw time.Time
}

// OpenOLED initializes periph, opens the bus and the panel.
func OpenOLED(cfg OLEDConfig, logger log.Logger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("render: initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("render: open I2C bus %q: %w", cfg.Bus, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("render: initialize display: %w", err)
	}

	o := newOLED(dev, cfg, logger)
	o.closer = bus
	level.Info(o.logger).Log("msg", "display initialized", "bus", cfg.Bus)
	return o, nil
}

func newOLED(dev display, cfg OLEDConfig, logger log.Logger) *OLED {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultOLEDInterval
	}
	if cfg.PageInterval <= 0 {
		cfg.PageInterval = defaultPageInterval
	}
	return &OLED{
		dev:          dev,
		logger:       log.With(logger, "component", "oled"),
		now:          time.Now,
		interval:     cfg.Interval,
		pageInterval: cfg.PageInterval,
	}
}

// Render draws the current page if the display interval has elapsed.
func (o *OLED) Render(snap status.Snapshot) error {
	now := o.now()
	if o.start.IsZero() {
		o.start = now
	}
	if !o.lastDraw.IsZero() && now.Sub(o.lastDraw) < o.interval {
		return nil
	}
	o.lastDraw = now

	page := int(now.Sub(o.start)/o.pageInterval) % len(oledPages)
	img := drawPage(snap, oledPages[page])
	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		level.Warn(o.logger).Log("msg", "display update failed", "err", err)
	}
	return nil
}

func drawPage(snap status.Snapshot, fields []status.Field) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, f := range fields {
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(oledLabels[f] + " " + oledValue(snap, f))
	}
	return img
}

// oledValue shortens values to fit 18 columns of 7 pixels.
func oledValue(snap status.Snapshot, f status.Field) string {
	v, ok := snap.Get(f)
	if !ok {
		return "---"
	}
	n, isNum := v.Float()
	if !isNum {
		return v.String()
	}
	switch f {
	case status.Lat:
		return hemisphere(n, "N", "S", 5)
	case status.Lon:
		return hemisphere(n, "E", "W", 5)
	case status.Alt:
		return fmt.Sprintf("%.0fm", n)
	case status.SOG:
		return fmt.Sprintf("%.1fkn", n)
	default:
		return fmt.Sprintf("%.1f", n)
	}
}

func hemisphere(v float64, pos, neg string, prec int) string {
	dir := pos
	if v < 0 {
		dir = neg
		v = -v
	}
	return fmt.Sprintf("%.*f%s", prec, v, dir)
}

// Close releases the I2C bus.
func (o *OLED) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}
