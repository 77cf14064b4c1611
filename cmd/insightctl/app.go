package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/config"
	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/storage"
	"github.com/rs/zerolog"
)

// app is everything a command needs. It shares the session persistence of the
// dashboard server, so a login made here is picked up there and the other way round.
type app struct {
	cfg      *config.Config
	persist  storage.TokenStore
	sessions *session.Store
	auth     *gateway.AuthService
	views    *aggregator.Aggregator

	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	jsonOut bool
	logger  zerolog.Logger
}

func newApp(ctx context.Context, in io.Reader, out, errOut io.Writer, jsonOut bool, verbose bool) (*app, error) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	persist, err := storage.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	a := &app{
		cfg:     cfg,
		persist: persist,
		in:      in,
		out:     out,
		errOut:  errOut,
		jsonOut: jsonOut,
		logger:  logger,
	}

	a.sessions = session.NewStore(persist, session.NotifierFunc(a.notify), logger)
	client := gateway.NewClient(cfg.APIBaseURL, a.sessions,
		gateway.WithTimeout(cfg.APITimeout),
		gateway.WithLogger(logger),
	)
	a.auth = gateway.NewAuthService(client)
	a.views = aggregator.NewAggregator(gateway.NewDataService(client), logger)

	if err := a.sessions.Init(ctx, a.auth); err != nil {
		logger.Warn().Err(err).Msg("could not restore session")
	}
	return a, nil
}

func (a *app) Close() error {
	return a.persist.Close()
}

// notify prints session notifications; JSON output stays machine readable
func (a *app) notify(n session.Notification) {
	if a.jsonOut && n.Level != session.LevelError && n.Level != session.LevelWarning {
		return
	}
	fmt.Fprintln(a.errOut, renderNotification(n))
}
