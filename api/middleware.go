package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gps-toll-system/logger"
	"gps-toll-system/session"
)

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// requestLogger tags each request with an id and logs its outcome.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		log := h.log.With(
			logger.String("request_id", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
		)
		r = r.WithContext(logger.NewContext(r.Context(), log))

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)

		log.Info("request completed",
			logger.Int("status", rec.Status()),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

const sessionCookie = "session"

// tokenFrom reads the session token from a bearer header or the session
// cookie, in that order.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireRole rejects requests without a live session of the given role.
func (h *Handler) requireRole(role session.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.Resolve(r.Context(), tokenFrom(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if s.Role != role {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		ctx := session.NewContext(r.Context(), s)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx, h.log).With(logger.String("identity", s.Identity)))
		next(w, r.WithContext(ctx))
	}
}
