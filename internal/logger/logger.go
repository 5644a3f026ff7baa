package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Component is attached to every log line written by the plugin.
const Component = "Sentry Plugin"

// Setup returns the process logger. Debug switches to a human readable
// console writer at debug level.
func Setup(debug bool) zerolog.Logger {
	return New(os.Stderr, debug)
}

// New returns a logger writing to w.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("component", Component).Logger()

	if debug {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}})
	}

	return logger
}
