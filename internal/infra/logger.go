package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages outside infra depend on the
// logging contract without importing the module directly.
type Logger = zerolog.Logger

// NewLogger builds the process logger: JSON at info level by default,
// pretty console output at debug level in development. Every event
// carries the service name so mirrored log streams stay attributable.
func NewLogger(appEnv string) Logger {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}
