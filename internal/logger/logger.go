package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the job logger. format "console" writes human-readable lines to
// stderr; anything else writes JSON to stdout.
func New(level, format string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	return zerolog.New(w).With().
		Timestamp().
		Logger().
		Level(logLevel)
}

// WithRunID tags every line of one invocation.
func WithRunID(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str("run_id", runID).Logger()
}
