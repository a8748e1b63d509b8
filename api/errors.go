package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gps-toll-system/auth"
	"gps-toll-system/dashboard"
	"gps-toll-system/logger"
	"gps-toll-system/session"
	"gps-toll-system/tables"
	"gps-toll-system/tolling"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP responses.
func statusFor(err error) (int, string) {
	var fe *tables.FetchError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password."
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, tables.ErrInvalidName):
		return http.StatusBadRequest, "Invalid vehicle ID"
	case errors.Is(err, tolling.ErrInvalidFix):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tolling.ErrQueueFull), errors.Is(err, tolling.ErrClosed):
		return http.StatusServiceUnavailable, "GPS queue unavailable, retry later"
	case errors.As(err, &fe):
		return http.StatusBadGateway, "Failed to load data"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	log := logger.FromContext(r.Context(), h.log)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.Error(err))
	} else {
		log.Debug("request rejected", logger.Int("status", status), logger.Error(err))
	}
	writeError(w, status, msg)
}
