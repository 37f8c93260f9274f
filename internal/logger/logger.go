// Package logger configures the global zerolog logger for the binaries.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init points the global logger at stdout, tagged with the service name.
// LOG_FORMAT=console (or a terminal on stdout) selects the human readable writer;
// LOG_LEVEL sets the minimum level (default info).
func Init(service string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(os.Getenv("LOG_LEVEL")))

	log.Logger = New(service, os.Stdout, useConsole(os.Getenv("LOG_FORMAT"), os.Stdout))
	return log.Logger
}

// New builds a logger writing to w.
func New(service string, w io.Writer, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().
		Str("service", service).
		Timestamp().
		Logger()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func useConsole(format string, f *os.File) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "json":
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
