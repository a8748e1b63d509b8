package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gps-toll-system/auth"
	"gps-toll-system/dashboard"
	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/models"
	"gps-toll-system/session"
	"gps-toll-system/tolling"
)

// ChargeLister lists recorded toll charges of a vehicle.
type ChargeLister interface {
	Charges(ctx context.Context, vehicleID string, limit int) ([]models.TollCharge, error)
}

type Deps struct {
	Verifier    *auth.Verifier
	UsersTable  auth.Table
	AdminsTable auth.Table
	Sessions    *session.Manager
	Dashboard   *dashboard.Service
	Processor   *tolling.Processor // nil when tables are read-only
	Charges     ChargeLister       // nil without a ledger
	Logger      logger.ILogger
	Metrics     *metrics.Metrics
}

type Handler struct {
	verifier    *auth.Verifier
	usersTable  auth.Table
	adminsTable auth.Table
	sessions    *session.Manager
	dashboard   *dashboard.Service
	processor   *tolling.Processor
	charges     ChargeLister
	log         logger.ILogger
	metrics     *metrics.Metrics
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		verifier:    d.Verifier,
		usersTable:  d.UsersTable,
		adminsTable: d.AdminsTable,
		sessions:    d.Sessions,
		dashboard:   d.Dashboard,
		processor:   d.Processor,
		charges:     d.Charges,
		log:         d.Logger,
		metrics:     d.Metrics,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	Username  string       `json:"username"`
	Role      session.Role `json:"role"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Login handles user logins against the user table
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.usersTable, session.RoleUser, "Invalid username or password.")
}

// AdminLogin handles administrator logins against the admin table
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.adminsTable, session.RoleAdmin, "Invalid admin username or password.")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, table auth.Table, role session.Role, rejected string) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	cred, err := h.verifier.Verify(r.Context(), table, req.Username, req.Password)
	if err != nil {
		result := "error"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			result = "rejected"
		}
		h.metrics.Logins.WithLabelValues(string(role), result).Inc()
		if result == "rejected" {
			writeError(w, http.StatusUnauthorized, rejected)
			return
		}
		h.fail(w, r, err)
		return
	}

	s, token, err := h.sessions.Login(r.Context(), cred.Username, role)
	if err != nil {
		h.metrics.Logins.WithLabelValues(string(role), "error").Inc()
		h.fail(w, r, err)
		return
	}
	h.metrics.Logins.WithLabelValues(string(role), "success").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Username:  s.Identity,
		Role:      s.Role,
		ExpiresAt: s.ExpiresAt,
	})
}

// Logout ends the caller's session. The cookie is cleared even when the
// token is already expired or invalid.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	if err := h.sessions.Logout(r.Context(), tokenFrom(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// MyProfile returns the profile of the logged-in user
func (h *Handler) MyProfile(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	p, err := h.dashboard.Profile(r.Context(), s.Identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MyHistory returns the trip history of the logged-in user's vehicle
func (h *Handler) MyHistory(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	u, err := h.dashboard.Lookup(r.Context(), s.Identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hist, err := h.dashboard.History(r.Context(), u.VehicleNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// AdminUsers lists every user with their trip history
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	users, err := h.dashboard.AdminOverview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"admin": s.Identity,
		"users": users,
	})
}

// VehicleHistory returns the trip history of any vehicle
func (h *Handler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.dashboard.History(r.Context(), mux.Vars(r)["vehicle_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// VehicleCharges returns the ledger entries of a vehicle
func (h *Handler) VehicleCharges(w http.ResponseWriter, r *http.Request) {
	if h.charges == nil {
		writeError(w, http.StatusNotFound, "Ledger is not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	charges, err := h.charges.Charges(r.Context(), mux.Vars(r)["vehicle_id"], limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if charges == nil {
		charges = []models.TollCharge{}
	}
	writeJSON(w, http.StatusOK, charges)
}

// gpsRequest uses pointers so that absent fields can be told apart from
// zero values. Devices send vehicle_id as a string or a number.
type gpsRequest struct {
	VehicleID *json.RawMessage `json:"vehicle_id"`
	Timestamp *string          `json:"timestamp"`
	Longitude *float64         `json:"longitude"`
	Latitude  *float64         `json:"latitude"`
}

func vehicleID(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// ReceiveGPS queues a GPS fix for toll processing
func (h *Handler) ReceiveGPS(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "GPS tolling is disabled")
		return
	}

	var req gpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VehicleID == nil || req.Timestamp == nil || req.Longitude == nil || req.Latitude == nil {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}
	id, ok := vehicleID(*req.VehicleID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}

	fix := models.GPSFix{
		VehicleID: id,
		Timestamp: *req.Timestamp,
		Longitude: *req.Longitude,
		Latitude:  *req.Latitude,
	}
	if err := h.processor.Submit(fix); err != nil {
		if errors.Is(err, tolling.ErrInvalidFix) {
			h.metrics.GPSFixes.WithLabelValues("invalid").Inc()
		} else {
			h.metrics.GPSFixes.WithLabelValues("dropped").Inc()
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "GPS data received"})
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path))
}
