package source

import (
	"fmt"
	"strings"
)

// Source types accepted by Open.
const (
	TypeFile   = "file"
	TypeStdin  = "stdin"
	TypeSerial = "serial"
	TypeMQTT   = "mqtt"
)

// Config selects and configures the line source.
type Config struct {
	Type   string       `yaml:"type"`
	Path   string       `yaml:"path"`
	Serial SerialConfig `yaml:"serial"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// Open builds the configured source. A file source without a path reads
// standard input.
func Open(cfg Config) (LineSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeFile:
		if cfg.Path == "" || cfg.Path == "-" {
			return Stdin(), nil
		}
		return OpenFile(cfg.Path)
	case TypeStdin:
		return Stdin(), nil
	case TypeSerial:
		serialCfg := cfg.Serial
		if serialCfg.Port == "" {
			serialCfg.Port = cfg.Path
		}
		return OpenSerial(serialCfg)
	case TypeMQTT:
		return DialMQTT(cfg.MQTT)
	default:
		return nil, fmt.Errorf("source: unknown type %q", cfg.Type)
	}
}
