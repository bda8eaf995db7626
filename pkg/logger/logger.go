// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	Pretty bool      // Enable pretty console output
	File   string    // Optional file that receives a JSON copy of every entry
	Output io.Writer // Console destination; nil means stdout
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new structured logger
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	console := out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	output := console
	var fileErr error
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			fileErr = err
		} else {
			output = zerolog.MultiLevelWriter(console, f)
		}
	}

	l := zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	if fileErr != nil {
		l.Warn().Err(fileErr).Str("file", cfg.File).Msg("Log file unavailable, logging to stdout only")
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// SetGlobalLogger sets the package-level logger
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
