package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the dashboard front end at allowedOrigins to call the API with
// credentials. Retry-After is exposed so the UI can back off while the
// session is still loading.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
