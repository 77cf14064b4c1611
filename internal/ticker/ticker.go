package ticker

import (
	"context"
	"errors"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/rs/zerolog"
)

// Sessions exposes the session state the ticker checks
type Sessions interface {
	Current() session.Snapshot
}

// Verifier resolves the current token against the API
type Verifier interface {
	Me(ctx context.Context) (*types.User, error)
}

// Ticker periodically revalidates the session token so an expired token ends the
// session even while no view is fetching data
type Ticker struct {
	sessions Sessions
	verifier Verifier
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(sessions Sessions, verifier Verifier, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		sessions: sessions,
		verifier: verifier,
		interval: interval,
		logger:   logger.With().Str("component", "ticker").Logger(),
	}
}

// Start checks the session every interval until ctx is done. A zero interval
// disables the ticker.
func (t *Ticker) Start(ctx context.Context) {
	if t.interval <= 0 {
		t.logger.Info().Msg("session revalidation disabled")
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case <-ticker.C:
			t.check(ctx)
		}
	}
}

func (t *Ticker) check(ctx context.Context) {
	if t.sessions.Current().State != session.StateAuthenticated {
		return
	}

	_, err := t.verifier.Me(ctx)
	switch {
	case err == nil:
		t.logger.Debug().Msg("session still valid")
	case errors.Is(err, gateway.ErrUnauthorized):
		// the gateway already cleared the session and pushed the redirect
		t.logger.Info().Msg("session token no longer accepted")
	default:
		t.logger.Warn().Err(err).Msg("session check failed")
	}
}
