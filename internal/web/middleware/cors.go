package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows cross-origin calls from the given origins. With no origins
// the handler is returned unchanged and only same-origin pages can call
// the API.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:         600,
	})
	return c.Handler
}
