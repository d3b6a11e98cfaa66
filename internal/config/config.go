// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/nmeatop/internal/dashboard"
	"github.com/relabs-tech/nmeatop/internal/logging"
	"github.com/relabs-tech/nmeatop/internal/publish"
	"github.com/relabs-tech/nmeatop/internal/record"
	"github.com/relabs-tech/nmeatop/internal/render"
	"github.com/relabs-tech/nmeatop/internal/source"
	"github.com/relabs-tech/nmeatop/internal/status"
	"github.com/relabs-tech/nmeatop/internal/web"
)

// Config holds all application configuration values.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Timeout time.Duration `yaml:"timeout"`
	Rate    float64       `yaml:"rate"`

	Log    logging.Config      `yaml:"log"`
	Web    web.Config          `yaml:"web"`
	Record record.Config       `yaml:"record"`
	OLED   render.OLEDConfig   `yaml:"oled"`
	Serial source.SerialConfig `yaml:"serial"`
	MQTT   source.MQTTConfig   `yaml:"mqtt"`

	Publish publish.Config `yaml:"publish"`
}

// SourceConfig picks where NMEA lines come from. Path is a file for the file
// type and the port for serial when serial.port is empty.
type SourceConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:  SourceConfig{Type: source.TypeFile},
		Timeout: status.DefaultTimeout,
		Rate:    dashboard.DefaultRate,
		Log:     logging.Config{Level: "info"},
		Web:     web.Config{PushInterval: time.Second},
		Record:  record.Config{Interval: record.DefaultInterval},
		Serial:  source.SerialConfig{BaudRate: source.DefaultBaudRate},
		MQTT:    source.MQTTConfig{ClientID: "nmeatop"},
		Publish: publish.Config{Interval: publish.DefaultInterval},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags binds command line flags to c, using its current values as
// defaults.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Source.Type, "type", c.Source.Type, "Line source: file, stdin, serial or mqtt")
	f.DurationVar(&c.Timeout, "timeout", c.Timeout, "Age after which a value is shown as unknown")
	f.Float64Var(&c.Rate, "rate", c.Rate, "Dashboard refresh rate in Hz")
	f.StringVar(&c.Log.File, "log.file", c.Log.File, "Write logs to this file; logs are discarded when empty")
	f.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level: debug, info, warn or error")
	f.StringVar(&c.Web.Addr, "web.addr", c.Web.Addr, "Serve the web mirror on this address, e.g. :8080")
	f.StringVar(&c.Record.Path, "record.path", c.Record.Path, "Append a CSV track to this file")
	f.IntVar(&c.Serial.BaudRate, "serial.baud", c.Serial.BaudRate, "Serial baud rate")
	f.StringVar(&c.MQTT.Broker, "mqtt.broker", c.MQTT.Broker, "MQTT broker URL, e.g. tcp://localhost:1883")
	f.StringVar(&c.MQTT.Topic, "mqtt.topic", c.MQTT.Topic, "MQTT topic carrying NMEA lines")
	f.StringVar(&c.Publish.Broker, "publish.broker", c.Publish.Broker, "Publish snapshots to this MQTT broker")
	f.StringVar(&c.Publish.Topic, "publish.topic", c.Publish.Topic, "MQTT topic for published snapshots")
	f.BoolVar(&c.OLED.Enable, "oled.enable", c.OLED.Enable, "Mirror the dashboard on an SSD1306 display")
}

// Parse reads flags from args, loads -config when given and lets flags set on
// the command line win over file values. The first positional argument is the
// source path. The result is not validated.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	var path string
	fs.StringVar(&path, "config", "", "YAML configuration file")

	cfg := Default()
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		overlay := flag.NewFlagSet("overlay", flag.ContinueOnError)
		loaded.RegisterFlags(overlay)

		var setErr error
		fs.Visit(func(fl *flag.Flag) {
			if setErr != nil || overlay.Lookup(fl.Name) == nil {
				return
			}
			setErr = overlay.Set(fl.Name, fl.Value.String())
		})
		if setErr != nil {
			return nil, setErr
		}
		cfg = loaded
	}

	if fs.NArg() > 0 {
		cfg.Source.Path = fs.Arg(0)
	}
	return cfg, nil
}

// Validate checks values and required keys per source type.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	}
	if c.Rate < dashboard.MinRate || c.Rate > dashboard.MaxRate {
		return fmt.Errorf("rate must be in [%g, %g] Hz, got %g", dashboard.MinRate, dashboard.MaxRate, c.Rate)
	}
	if err := logging.CheckLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Record.Interval < 0 {
		return fmt.Errorf("record.interval must be >= 0, got %s", c.Record.Interval)
	}
	if c.Publish.Broker != "" && c.Publish.Topic == "" {
		return fmt.Errorf("publish.topic is required when publish.broker is set")
	}
	if c.Web.PushInterval < 0 {
		return fmt.Errorf("web.push_interval must be >= 0, got %s", c.Web.PushInterval)
	}

	switch strings.ToLower(c.Source.Type) {
	case "", source.TypeFile, source.TypeStdin:
	case source.TypeSerial:
		if c.Serial.Port == "" && c.Source.Path == "" {
			return fmt.Errorf("serial.port is required for the serial source")
		}
		if c.Serial.BaudRate < 0 {
			return fmt.Errorf("serial.baud_rate must not be negative, got %d", c.Serial.BaudRate)
		}
	case source.TypeMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required for the mqtt source")
		}
		if c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required for the mqtt source")
		}
	default:
		return fmt.Errorf("source.type must be one of file, stdin, serial, mqtt, got %q", c.Source.Type)
	}
	return nil
}

// LineSource assembles what source.Open needs.
func (c *Config) LineSource() source.Config {
	return source.Config{
		Type:   c.Source.Type,
		Path:   c.Source.Path,
		Serial: c.Serial,
		MQTT:   c.MQTT,
	}
}
