package api

import (
	"manifest-service/internal/api/handlers"
	"manifest-service/internal/platform/obs"
	"manifest-service/internal/ports"
	"manifest-service/internal/services"
	"net/http"
	"time"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Store       ports.RecordStore
	Feed        ports.ChangeFeed
	Gate        *services.AuthGate
	Reconciler  *services.Reconciler
	Batch       *services.BatchProcessor
	Sessions    *handlers.SessionRegistry
	Metrics     *obs.Metrics
	StaleWindow time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Store: d.Store}
	sessionHandler := &handlers.SessionHandler{
		Gate:        d.Gate,
		Registry:    d.Sessions,
		Reconciler:  d.Reconciler,
		Feed:        d.Feed,
		StaleWindow: d.StaleWindow,
	}
	rosterHandler := &handlers.RosterHandler{Roster: d.Store, Feed: d.Feed, Registry: d.Sessions}
	worklistHandler := &handlers.WorklistHandler{Registry: d.Sessions, Reconciler: d.Reconciler}
	submissionHandler := &handlers.SubmissionHandler{
		Registry:   d.Sessions,
		Reconciler: d.Reconciler,
		Batch:      d.Batch,
	}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/sessions", sessionHandler.Sessions)
	mux.HandleFunc("/agents", rosterHandler.Agents)
	mux.HandleFunc("/operators", rosterHandler.Operators)
	mux.HandleFunc("/worklist", worklistHandler.List)
	mux.HandleFunc("/worklist/refresh", worklistHandler.Refresh)
	mux.HandleFunc("/submissions", submissionHandler.Submit)
	mux.HandleFunc("/batches", submissionHandler.SubmitBatch)
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}
