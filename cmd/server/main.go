package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/aggregator"
	"github.com/dennisdiepolder/monti/insights/internal/api"
	"github.com/dennisdiepolder/monti/insights/internal/config"
	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/internal/storage"
	"github.com/dennisdiepolder/monti/insights/internal/ticker"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/dennisdiepolder/monti/insights/internal/websocket"
	"github.com/dennisdiepolder/monti/insights/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Str("api_base_url", cfg.APIBaseURL).
		Str("session_backend", string(cfg.Storage.Backend)).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("starting MONTI Insights server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persist, err := storage.NewStore(ctx, cfg.Storage, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session storage")
	}
	defer persist.Close()

	// Notifications and session changes go out over the hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run(ctx)

	sessions := session.NewStore(persist, hub, log.Logger)
	go hub.Watch(ctx, sessions)

	client := gateway.NewClient(cfg.APIBaseURL, sessions,
		gateway.WithTimeout(cfg.APITimeout),
		gateway.WithLogger(log.Logger),
	)
	authService := gateway.NewAuthService(client)

	// Restoring may take a round trip; views answer 503 until it settles
	go func() {
		if err := sessions.Init(ctx, authService); err != nil {
			log.Warn().Err(err).Msg("could not restore session")
		}
	}()

	views := aggregator.NewAggregator(gateway.NewDataService(client), log.Logger)

	revalidator := ticker.NewTicker(sessions, authService, cfg.SessionCheckInterval, log.Logger)
	go revalidator.Start(ctx)

	wsHandler := websocket.NewHandler(hub, sessions, websocket.Timeouts{
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		MaxMessageSize: cfg.MaxMessageSize,
	}, cfg.AllowedOrigins, log.Logger)

	r := newRouter(routes{
		sessions:       sessions,
		views:          views,
		settings:       cfg.Settings(),
		limiter:        api.NewLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
		ws:             wsHandler,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stops the hub, ticker and any pending session restore
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

type routes struct {
	sessions       api.Sessions
	views          api.Views
	settings       config.Settings
	limiter        *api.LoginLimiter
	ws             http.Handler
	allowedOrigins []string
	logger         zerolog.Logger
}

func newRouter(rt routes) http.Handler {
	sessionHandler := api.NewSessionHandler(rt.sessions, rt.logger)
	dashboardHandler := api.NewDashboardHandler(rt.views, rt.logger)
	settingsHandler := api.NewSettingsHandler(rt.settings)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.allowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Get().Handler())
	r.Get("/ws", rt.ws.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", sessionHandler.GetSession)
		r.Post("/session/logout", sessionHandler.Logout)
		r.Group(func(r chi.Router) {
			r.Use(rt.limiter.Middleware)
			r.Post("/session/login", sessionHandler.Login)
			r.Post("/session/google", sessionHandler.LoginWithGoogle)
		})

		// Views require a signed-in session
		r.Group(func(r chi.Router) {
			r.Use(api.RequireSession(rt.sessions, "", rt.logger))
			r.Get("/dashboard", dashboardHandler.GetDashboard)
			r.Get("/agents", dashboardHandler.GetAgents)
			r.Get("/calls/recent", dashboardHandler.GetRecentCalls)
			r.Get("/calls/logs", dashboardHandler.GetCallLogs)
			r.Get("/calls/{id}/transcript", dashboardHandler.GetTranscript)
		})

		r.Group(func(r chi.Router) {
			r.Use(api.RequireSession(rt.sessions, types.RoleAdmin, rt.logger))
			r.Get("/settings", settingsHandler.GetSettings)
		})
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"monti-insights"}`)
}
