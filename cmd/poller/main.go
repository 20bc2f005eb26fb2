// Command poller runs the intake loop: it pulls build requests from the
// configured channels, feeds them through the pipeline, and delivers queued
// replies. It shares the SQLite store with the server process.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forgebay/go-build-backend/internal/channel"
	"github.com/forgebay/go-build-backend/internal/config"
	"github.com/forgebay/go-build-backend/internal/observability"
	"github.com/forgebay/go-build-backend/internal/pipeline"
	"github.com/forgebay/go-build-backend/internal/repo"
	"github.com/forgebay/go-build-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("component", "poller").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	coord, err := pipeline.FromConfig(db, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire pipeline")
	}

	// The webform channel only formats and drains replies; the social channel
	// needs credentials to poll.
	channels := []channel.Channel{channel.Webform{}}
	if cfg.Pipeline.SocialBearerToken != "" {
		social := channel.NewSocial(
			cfg.Pipeline.SocialBearerToken,
			cfg.Pipeline.TriggerKeyword,
			cfg.Pipeline.OwnerUsername,
			logger,
		)
		channels = append(channels, social)
	} else {
		logger.Warn().Msg("no social bearer token; polling webform replies only")
	}

	p := &pipeline.Poller{
		Coordinator: coord,
		Store:       coord.Store,
		Channels:    channels,
		Interval:    cfg.PollInterval,
		Log:         logger,
	}

	logger.Info().
		Str("version", version).
		Dur("interval", cfg.PollInterval).
		Int("channels", len(channels)).
		Msg("poller starting")

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("poller")
	}
	logger.Info().Msg("poller stopped")
}
