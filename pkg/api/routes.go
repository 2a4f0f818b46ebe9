package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes registers the read-only query endpoints
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	corpora := api.PathPrefix("/corpora").Subrouter()
	corpora.HandleFunc("", handlers.ListCorpora).Methods("GET")
	corpora.HandleFunc("/{key}/top", handlers.GetTopMotifs).Methods("GET")
	corpora.HandleFunc("/{key}/motifs/{motifId:[0-9]+}", handlers.GetMotif).Methods("GET")

	api.HandleFunc("/compare", handlers.Compare).Methods("GET")
}

// NewRouter builds the full handler with middleware. Paths are matched encoded so keys
// containing escaped labels survive routing.
func NewRouter(handlers *Handlers) http.Handler {
	router := mux.NewRouter().UseEncodedPath()
	SetupRoutes(router, handlers)

	router.Use(RequestIDMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(RecoveryMiddleware)

	return CORSMiddleware(router)
}
