// Package observability holds the service metrics and logger construction.
package observability

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger for a service binary. Unknown or empty
// levels fall back to info.
func NewLogger(service, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).
		Level(parsed).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
