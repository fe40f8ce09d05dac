// Package logger builds the file-backed zerolog logger. The terminal belongs
// to the UI, so nothing is ever logged to stdout or stderr.
package logger

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = zerolog.InfoLevel

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// ParseLevel parses a level name such as "debug" or "warn". An empty string
// yields DefaultLevel.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	if level == zerolog.NoLevel {
		return zerolog.NoLevel, errors.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// New returns a logger writing JSON lines to a rotating file at path. The
// returned Closer releases the file.
func New(path string, level zerolog.Level) (zerolog.Logger, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return NewWithWriter(w, level), w
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
