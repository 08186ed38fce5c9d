package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Cron trigger
	api.HandleFunc("/cron/populate", handler.RunPopulate).Methods("GET")

	// Catalog proxy
	api.HandleFunc("/shows/{kind}/{id}", handler.GetShowDetail).Methods("GET")
	api.HandleFunc("/popular", handler.GetPopularTitles).Methods("GET")
	api.HandleFunc("/search", handler.SearchTitles).Methods("GET")

	// Operator
	api.HandleFunc("/services", handler.GetServices).Methods("GET")
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")

	// Enable CORS
	r.Use(corsMiddleware)

	// Logging middleware
	r.Use(loggingMiddleware)

	return r
}
