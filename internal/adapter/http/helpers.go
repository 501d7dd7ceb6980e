package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/logger"
)

const maxRequestBodySize = 64 << 10 // 64 KB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

type errorResponse struct {
	Error    string `json:"error"`
	LoginURL string `json:"login_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps a domain error to its status code. Upstream and
// unexpected failures are logged with the request id.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: domain.ErrUnauthorized.Error(), LoginURL: loginPath})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrTenantUnavailable):
		writeError(w, http.StatusServiceUnavailable, domain.ErrTenantUnavailable.Error())
	case errors.As(err, &apiErr):
		logger.From(r.Context()).Warn("upstream api error", "status", apiErr.Status, "error", err)
		writeError(w, http.StatusBadGateway, apiErr.Message)
	default:
		logger.From(r.Context()).Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeInternalError logs err and answers with a generic 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.From(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
