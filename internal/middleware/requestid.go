// Package middleware provides HTTP middleware and the outbound request
// decorator for the storefront.
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/logger"
)

const headerRequestID = "X-Request-ID"

// maxRequestIDLen caps client-supplied ids before they reach logs.
const maxRequestIDLen = 128

// RequestID is HTTP middleware that extracts X-Request-ID from the request
// header or generates a new one. The ID is stored in the context and set
// on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = generateID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateID returns a random UUID without dashes (32 hex chars).
func generateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
