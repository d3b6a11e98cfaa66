// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"fmt"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialConfig selects the receiver's serial port.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DefaultBaudRate is the NMEA 0183 standard rate most receivers ship with.
const DefaultBaudRate = 9600

func serialOptions(cfg SerialConfig) serial.OpenOptions {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	// 8N1, return as soon as one byte is available.
	return serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

// OpenSerial opens a GPS receiver on a serial port.
func OpenSerial(cfg SerialConfig) (*Reader, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("source: serial port is required")
	}
	opts := serialOptions(cfg)
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("source: open serial %s at %d baud: %w", opts.PortName, opts.BaudRate, err)
	}
	return NewReader(port), nil
}
