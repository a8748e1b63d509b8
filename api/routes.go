package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"gps-toll-system/session"
)

func RegisterRoutes(h *Handler, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.notFound)
	router.Use(h.requestLogger)

	// Session endpoints
	router.HandleFunc("/login", h.Login).Methods("POST")
	router.HandleFunc("/admin/login", h.AdminLogin).Methods("POST")
	router.HandleFunc("/logout", h.Logout).Methods("POST")

	// User dashboard
	router.HandleFunc("/me/profile", h.requireRole(session.RoleUser, h.MyProfile)).Methods("GET")
	router.HandleFunc("/me/history", h.requireRole(session.RoleUser, h.MyHistory)).Methods("GET")

	// Admin dashboard
	router.HandleFunc("/admin/users", h.requireRole(session.RoleAdmin, h.AdminUsers)).Methods("GET")
	router.HandleFunc("/admin/vehicles/{vehicle_id}/history", h.requireRole(session.RoleAdmin, h.VehicleHistory)).Methods("GET")
	router.HandleFunc("/admin/vehicles/{vehicle_id}/charges", h.requireRole(session.RoleAdmin, h.VehicleCharges)).Methods("GET")

	// GPS devices
	router.HandleFunc("/gps", h.ReceiveGPS).Methods("POST")

	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	// Add CORS support
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)

	return cors(router)
}
