package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Warehouse routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/records", handler.GetRecords).Methods("GET")
	api.HandleFunc("/metrics", handler.GetMetrics).Methods("GET")
	api.HandleFunc("/stats", handler.GetStats).Methods("GET")
	api.HandleFunc("/ingest", handler.Ingest).Methods("POST")
	api.HandleFunc("/query", handler.RunQuery).Methods("POST")
	api.HandleFunc("/documents/{ticker}", handler.GetDocument).Methods("GET")

	return r
}
