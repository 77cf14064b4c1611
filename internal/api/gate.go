package api

import (
	"context"
	"net/http"

	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/rs/zerolog"
)

type contextKey string

const userContextKey contextKey = "user"

// Authorizer decides whether the session may open a view
type Authorizer interface {
	Authorize(role types.Role) (*types.User, error)
}

// RequireSession lets a request through only when the session is authenticated
// with role (empty role: any signed-in user). The user is stored in the context.
func RequireSession(sessions Authorizer, role types.Role, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.Authorize(role)
			if err != nil {
				writeFailure(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by RequireSession
func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userContextKey).(*types.User)
	return user, ok
}
