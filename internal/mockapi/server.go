package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/access"
	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const defaultRecentLimit = 10

// IdentityVerifier checks a third-party ID token
type IdentityVerifier interface {
	Verify(idToken string) (*auth.GoogleIdentity, error)
}

// API serves the call API the dashboard consumes
type API struct {
	data   *Dataset
	issuer *auth.Issuer
	google IdentityVerifier
	now    func() time.Time
	logger zerolog.Logger
}

// NewAPI creates a new mock call API
func NewAPI(data *Dataset, issuer *auth.Issuer, logger zerolog.Logger) *API {
	return &API{
		data:   data,
		issuer: issuer,
		now:    time.Now,
		logger: logger.With().Str("component", "mockapi").Logger(),
	}
}

// SetGoogleVerifier enables POST /auth/google
func (api *API) SetGoogleVerifier(v IdentityVerifier) {
	api.google = v
}

// SetupRoutes configures HTTP routes
func (api *API) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", api.healthHandler).Methods("GET")
	router.HandleFunc("/auth/login", api.loginHandler).Methods("POST")
	router.HandleFunc("/auth/google", api.googleHandler).Methods("POST")

	protected := router.NewRoute().Subrouter()
	protected.Use(auth.Middleware(api.issuer, api.logger))
	protected.HandleFunc("/auth/me", api.meHandler).Methods("GET")
	protected.HandleFunc("/agents", api.agentsHandler).Methods("GET")
	protected.HandleFunc("/calls", api.callsHandler).Methods("GET")
	protected.HandleFunc("/calls/recent", api.recentHandler).Methods("GET")
	protected.HandleFunc("/calls/metrics", api.metricsHandler).Methods("GET")
	protected.HandleFunc("/calls/logs", api.callLogsHandler).Methods("GET")
	protected.HandleFunc("/calls/{id}/transcripts", api.transcriptHandler).Methods("GET")
}

// Start runs the HTTP server until ctx is cancelled
func (api *API) Start(ctx context.Context, port string) error {
	router := mux.NewRouter()
	api.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	api.logger.Info().Str("port", port).Msg("mock call API listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("mock API server failed: %w", err)
	}
	return nil
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (api *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeValidation(w, err)
		return
	}

	account, err := api.data.Authenticate(req.Email, req.Password)
	if err != nil {
		api.logger.Info().Str("email", req.Email).Msg("login rejected")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}
	api.issue(w, account.User())
}

func (api *API) googleHandler(w http.ResponseWriter, r *http.Request) {
	if api.google == nil {
		writeError(w, http.StatusNotImplemented, "Google sign-in is not configured")
		return
	}

	var req types.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusUnprocessableEntity, "id_token is required")
		return
	}

	identity, err := api.google.Verify(req.IDToken)
	if err != nil {
		api.logger.Info().Err(err).Msg("google sign-in rejected")
		writeError(w, http.StatusUnauthorized, "Invalid Google credential")
		return
	}

	// known accounts keep their role; everyone else is a client of their own domain
	var user *types.User
	if account := api.data.Account(identity.Email); account != nil {
		user = account.User()
	} else {
		user = &types.User{
			ID:    "google:" + identity.Subject,
			Email: identity.Email,
			Name:  identity.Name,
			Role:  types.RoleClient,
		}
		user.Domain = user.EmailDomain()
	}
	api.issue(w, user)
}

func (api *API) issue(w http.ResponseWriter, user *types.User) {
	token, err := api.issuer.Issue(user)
	if err != nil {
		api.logger.Error().Err(err).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	api.logger.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("token issued")
	writeJSON(w, http.StatusOK, types.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *user,
	})
}

func (api *API) meHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (api *API) agentsHandler(w http.ResponseWriter, r *http.Request) {
	agents, _ := access.Scope(currentUser(r), api.data.Agents, nil)
	writeJSON(w, http.StatusOK, agents)
}

func (api *API) callsHandler(w http.ResponseWriter, r *http.Request) {
	_, calls := access.Scope(currentUser(r), nil, api.data.Calls)
	writeJSON(w, http.StatusOK, calls)
}

func (api *API) recentHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	_, calls := access.Scope(currentUser(r), nil, api.data.Calls)
	writeJSON(w, http.StatusOK, api.data.RecentCalls(calls, limit))
}

func (api *API) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.data.Metrics(api.now()))
}

func (api *API) callLogsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, access.ScopeCallLogs(currentUser(r), api.data.CallLogs))
}

func (api *API) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	log, ok := api.data.CallLog(id)
	if !ok || !access.Visible(currentUser(r), log.Domain) {
		writeError(w, http.StatusNotFound, "Call not found")
		return
	}
	records, ok := api.data.Transcript(id)
	if !ok {
		writeError(w, http.StatusNotFound, "No transcript for this call")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func currentUser(r *http.Request) *types.User {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return nil
	}
	return claims.User()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation reports field errors the way FastAPI does
func writeValidation(w http.ResponseWriter, err error) {
	type fieldError struct {
		Loc  []string `json:"loc"`
		Msg  string   `json:"msg"`
		Type string   `json:"type"`
	}
	var details []fieldError
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details = append(details, fieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()),
				Type: fe.Tag(),
			})
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": details})
}
