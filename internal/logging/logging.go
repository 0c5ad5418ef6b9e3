package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/internal/config"
)

// New builds the process logger: human readable console output in DEV, JSON elsewhere.
func New(cfg config.EnvConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg config.EnvConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.GetEnv() == "DEV" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", cfg.GetAppName()).
		Logger()
}
