package main

import (
	"context"
	"flag"
	"os"

	"github.com/arhyth/bankxmov"
	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := bankxmov.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}

	ctx := context.Background()
	lh, err := bankxmov.NewLocalHelper(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting local helper")
	}
	defer lh.Conn.Close(ctx)

	if _, err = lh.InitDB(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error initializing database")
	}
	if err = lh.PrepareSeedData(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error preparing seed data")
	}
	logger.Info().
		Int("account_types", len(cfg.Seed.AccountTypes)).
		Int("accounts", len(cfg.Seed.Accounts)).
		Int("cards", len(cfg.Seed.Cards)).
		Msg("database seeded")
}
