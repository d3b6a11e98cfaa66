package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nmeatop/internal/source"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nmeatop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("nmeatop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 60.0, cfg.Rate)
	assert.Equal(t, source.DefaultBaudRate, cfg.Serial.BaudRate)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
source:
  type: serial
timeout: 2s
rate: 30
serial:
  port: /dev/ttyUSB0
  baud_rate: 4800
web:
  addr: ":8080"
record:
  path: track.csv
  interval: 500ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "serial", cfg.Source.Type)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 30.0, cfg.Rate)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 4800, cfg.Serial.BaudRate)
	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.Equal(t, time.Second, cfg.Web.PushInterval, "untouched keys keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Record.Interval)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeTempConfig(t, "timout: 5s\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFlagsOverFile(t *testing.T) {
	path := writeTempConfig(t, "timeout: 2s\nrate: 30\nlog:\n  level: debug\n")

	cfg, err := Parse(newFlagSet(), []string{"-config", path, "-rate", "10", "gps.log"})
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Rate, "flag wins")
	assert.Equal(t, 2*time.Second, cfg.Timeout, "file value kept")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "gps.log", cfg.Source.Path)
}

func TestParseWithoutFile(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{"-timeout", "750ms", "-type", "stdin"})
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "stdin", cfg.Source.Type)
	assert.Empty(t, cfg.Source.Path)
}

func TestParseBadFlag(t *testing.T) {
	_, err := Parse(newFlagSet(), []string{"-timeout", "soon"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be > 0, got 0s"},
		{"zero rate", func(c *Config) { c.Rate = 0 }, "rate must be in [0.1, 1000] Hz, got 0"},
		{"tiny rate", func(c *Config) { c.Rate = 1e-10 }, "rate must be in [0.1, 1000] Hz, got 1e-10"},
		{"huge rate", func(c *Config) { c.Rate = 5000 }, "rate must be in [0.1, 1000] Hz, got 5000"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, `log.level: logging: unknown level "loud"`},
		{"serial without port", func(c *Config) { c.Source.Type = "serial" }, "serial.port is required for the serial source"},
		{"mqtt without broker", func(c *Config) { c.Source.Type = "mqtt" }, "mqtt.broker is required for the mqtt source"},
		{"mqtt without topic", func(c *Config) {
			c.Source.Type = "mqtt"
			c.MQTT.Broker = "tcp://localhost:1883"
		}, "mqtt.topic is required for the mqtt source"},
		{"unknown type", func(c *Config) { c.Source.Type = "udp" }, `source.type must be one of file, stdin, serial, mqtt, got "udp"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.EqualError(t, cfg.Validate(), tc.want)
		})
	}
}

func TestSerialPortFromPath(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceConfig{Type: "serial", Path: "/dev/ttyACM0"}
	require.NoError(t, cfg.Validate())

	ls := cfg.LineSource()
	assert.Equal(t, "/dev/ttyACM0", ls.Path)
	assert.Equal(t, source.DefaultBaudRate, ls.Serial.BaudRate)
}

func TestPublishNeedsTopic(t *testing.T) {
	cfg := Default()
	cfg.Publish.Broker = "tcp://localhost:1883"
	assert.EqualError(t, cfg.Validate(), "publish.topic is required when publish.broker is set")

	cfg.Publish.Topic = "nmeatop/status"
	assert.NoError(t, cfg.Validate())
}
