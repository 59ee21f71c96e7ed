package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger that every component derives its sub-logger
// from. level accepts zerolog's level names; anything unparseable falls back
// to info. format "pretty" switches to a console writer for local
// development, everything else emits JSON lines.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	// Components tag themselves via sub-loggers, so the root carries the
	// service name rather than caller locations.
	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "certexam-engine").
		Logger()
}
