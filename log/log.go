package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so callers can pass the concrete logger around
// without re-importing zerolog configuration concerns.
type Logger struct {
	zerolog.Logger
}

// New builds the process-wide root logger. Level falls back to info when the
// supplied string does not parse. Pretty enables console output for local runs.
func New(level string, pretty bool) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out = zerolog.New(os.Stdout)
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return Logger{out.Level(lvl).With().Timestamp().Logger()}
}
