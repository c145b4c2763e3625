// Package logging configures the structured logger shared by the CLI, the
// server and the repository snapshots.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Format selects the log encoding.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// New builds a logger writing to stderr. FormatAuto picks the console writer
// when stderr is a terminal and JSON otherwise.
func New(level string, format Format) zerolog.Logger {
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = FormatConsole
		}
	}
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter builds a logger on an arbitrary writer (used by tests).
func NewWithWriter(w io.Writer, level string, format Format) zerolog.Logger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", "quickgit").
		Logger()
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
// "warning" and "off" are accepted as aliases.
func ParseLevel(level string) zerolog.Level {
	switch level = strings.ToLower(strings.TrimSpace(level)); level {
	case "warning":
		level = zerolog.LevelWarnValue
	case "off":
		level = "disabled"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Stopwatch starts timing an operation and returns the func that logs the
// elapsed time at debug level. Typical use: defer logging.Stopwatch(l, "Fill")().
func Stopwatch(l zerolog.Logger, name string) func() {
	start := time.Now()
	return func() {
		l.Debug().Str("op", name).Dur("elapsed", time.Since(start)).Msg("timed")
	}
}
