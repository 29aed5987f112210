// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sprite-ai/prlens/internal/config"
)

// New returns a logger writing to stderr.
func New(cfg config.Log) (zerolog.Logger, error) {
	return NewWriter(cfg, os.Stderr)
}

// NewWriter returns a logger writing to w, as console lines or JSON
// depending on cfg.Format.
func NewWriter(cfg config.Log, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	switch cfg.Format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: %w", cfg.Format, config.ErrInvalid)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Setup builds the logger and installs it as the global zerolog logger.
func Setup(cfg config.Log) (zerolog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}
