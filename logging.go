package auth

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// zerologAdapter bridges a zerolog.Logger onto the Logger interface used
// throughout the package.
type zerologAdapter struct {
	log zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger so it satisfies Logger.
func NewZerologLogger(log zerolog.Logger) Logger {
	return &zerologAdapter{log: log}
}

// NewConsoleLogger builds a console-formatted Logger writing to w. When w is
// nil it writes to stderr.
func NewConsoleLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: w}).With().
		Timestamp().
		Str("component", "auth").
		Logger()
	return &zerologAdapter{log: log}
}

func (z *zerologAdapter) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

func (z *zerologAdapter) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *zerologAdapter) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}

type defLogger struct{}

func (defLogger) Debug(string, ...any) {}
func (defLogger) Info(string, ...any)  {}
func (defLogger) Error(string, ...any) {}
