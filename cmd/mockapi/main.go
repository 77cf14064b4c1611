package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/config"
	"github.com/dennisdiepolder/monti/insights/internal/mockapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadMock()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	data, err := mockapi.LoadDataset(cfg.DataFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}
	log.Info().
		Int("users", len(data.Users)).
		Int("agents", len(data.Agents)).
		Int("calls", len(data.Calls)).
		Int("call_logs", len(data.CallLogs)).
		Msg("dataset loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := mockapi.NewAPI(data, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL), log.Logger)

	if cfg.GoogleClientID != "" {
		jwksURL := cfg.GoogleJWKSURL
		if jwksURL == "" {
			jwksURL = auth.GoogleJWKSURL
		}
		verifier, err := auth.NewGoogleVerifierFromURL(ctx, jwksURL, cfg.GoogleClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up Google sign-in")
		}
		api.SetGoogleVerifier(verifier)
		log.Info().Str("jwks", jwksURL).Msg("Google sign-in enabled")
	}

	if err := api.Start(ctx, cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("mock API stopped")
	}
	log.Info().Msg("mock API stopped")
}
