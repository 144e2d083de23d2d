// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"tradedesk-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and writes human-readable output outside production.
// Contexts without a request logger fall back to the global one.
func Setup(cfg *config.Config) {
	setup(cfg, os.Stdout)
}

func setup(cfg *config.Config, out io.Writer) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("env", cfg.Env).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}
