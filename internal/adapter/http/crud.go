package http

import (
	"context"
	"net/http"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
)

// ---------------------------------------------------------------------------
// Session-scoped handler factories
// ---------------------------------------------------------------------------

// handleSessionPut creates a handler that decodes a JSON body and stores it
// for the caller's browser session.
func handleSessionPut[T any](bodyLimit int64, saveFn func(ctx context.Context, sessionID string, v *T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := readJSON[T](w, r, bodyLimit)
		if !ok {
			return
		}
		ctx := r.Context()
		if err := saveFn(ctx, middleware.SessionIDFromContext(ctx), &v); err != nil {
			writeDomainError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, &v)
	}
}

// handleSessionGet creates a handler that returns what the caller's browser
// session has stored.
func handleSessionGet[T any](getFn func(ctx context.Context, sessionID string) (*T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		v, err := getFn(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// handleSessionDelete creates a handler that drops what the caller's browser
// session has stored.
func handleSessionDelete(deleteFn func(ctx context.Context, sessionID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := deleteFn(ctx, middleware.SessionIDFromContext(ctx)); err != nil {
			writeInternalError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
