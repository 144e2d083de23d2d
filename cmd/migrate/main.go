// Command migrate creates or updates the schema and rewrites legacy contract
// ids (with the shipment, tank and routing references derived from them).
package main

import (
	"context"
	"flag"

	contractsvc "tradedesk-backend/internal/application/contracts"
	"tradedesk-backend/internal/config"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/database"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	schemaOnly := flag.Bool("schema-only", false, "migrate the schema without rewriting legacy ids")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	logging.Setup(cfg)
	if cfg.DatabaseURL == "" {
		log.Fatal().Str("env", cfg.Env).Msg("database URL is not configured")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database open")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	log.Info().Msg("schema up to date")
	if *schemaOnly {
		return
	}

	svc := &contractsvc.Service{Store: store.New(db, events.NewBus())}
	renames, err := svc.CanonicalizeLegacyIDs(context.Background())
	for _, r := range renames {
		log.Info().Str("from", r.From).Str("to", r.To).Msg("contract id rewritten")
	}
	if err != nil {
		log.Fatal().Err(err).Int("rewritten", len(renames)).Msg("legacy id rewrite failed")
	}
	log.Info().Int("rewritten", len(renames)).Msg("legacy id rewrite complete")
}
