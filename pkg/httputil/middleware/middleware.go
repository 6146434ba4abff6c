// Package middleware provides http.Handler middleware used by the REST
// server: request IDs, request logging, CORS and bearer-token subject
// extraction.
package middleware

import "net/http"

// Middleware wraps an http.Handler to modify or enhance its behavior.
type Middleware func(http.Handler) http.Handler
