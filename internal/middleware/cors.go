package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultAllowedOrigin is the local frontend.
const DefaultAllowedOrigin = "http://localhost:3000"

// CORS returns a router middleware that admits browser requests from origins.
// Credentials are allowed, so wildcard origins are not accepted.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{DefaultAllowedOrigin}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
