// Package logging builds the go-kit logger shared by every component.
//
// The dashboard owns the terminal, so logs never go to stdout/stderr while
// it runs: they are written to a file, or dropped when none is configured.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Config controls where logs go and how much is kept.
type Config struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logfmt logger with ts and caller keys. The returned closer
// releases the log file.
func New(cfg Config) (log.Logger, io.Closer, error) {
	if cfg.File == "" {
		return log.NewNopLogger(), nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.File, err)
	}

	logger, err := NewWithWriter(f, cfg.Level)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}

// NewWithWriter builds the logger on top of w.
func NewWithWriter(w io.Writer, lvl string) (log.Logger, error) {
	opt, err := levelOption(lvl)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, opt)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger, nil
}

func levelOption(lvl string) (level.Option, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "", "info":
		return level.AllowInfo(), nil
	case "debug":
		return level.AllowDebug(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("logging: unknown level %q", lvl)
	}
}

// CheckLevel reports an error for level names New would reject.
func CheckLevel(lvl string) error {
	_, err := levelOption(lvl)
	return err
}
