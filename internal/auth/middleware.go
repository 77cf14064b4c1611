package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the claims of an access token issued by the call API
type Claims struct {
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// User maps the claims to the user they identify
func (c *Claims) User() *types.User {
	u := &types.User{
		ID:    c.Subject,
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
	u.Domain = u.EmailDomain()
	return u
}

type contextKey string

const UserContextKey contextKey = "user"

// TokenVerifier validates an access token
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// token's claims in the request context
func Middleware(verifier TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				logger.Debug().Str("path", r.URL.Path).Msg("missing authorization token")
				unauthorized(w, "Not authenticated")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				logger.Info().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// extractToken gets the token from Authorization header or query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return strings.TrimSpace(tokenString)
		}
	}

	// Try query parameter (for WebSocket connections)
	return r.URL.Query().Get("token")
}

// GetUserFromContext retrieves user claims from request context
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}
