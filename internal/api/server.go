// Package api exposes the progression engine over HTTP: player progress,
// eligibility checks, completion recording, and contest registration.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthrocket-labs/ignition/internal/app/cooldown"
	"github.com/healthrocket-labs/ignition/internal/app/eligibility"
	"github.com/healthrocket-labs/ignition/internal/app/reset"
	"github.com/healthrocket-labs/ignition/internal/domain"
)

// AdminStore covers the store operations the API needs beyond the engine
// interfaces: player provisioning and device-connection facts.
type AdminStore interface {
	EnsurePlayer(ctx context.Context, playerID string, isPreview bool, credits int) error
	SetDeviceConnected(ctx context.Context, playerID, deviceName string, connected bool) error
}

// Server is the engine's HTTP API server.
type Server struct {
	store    domain.ProgressStore
	admin    AdminStore
	oracle   domain.CreditOracle
	gate     *eligibility.Gate
	ledger   *cooldown.Ledger
	contests map[string]domain.Contest
	loc      *time.Location

	payments       domain.PaymentSessionCreator // nil when payments are not configured
	scheduler      *reset.Scheduler             // nil when the reset loop is not running
	metricsEnabled bool
	version        string

	now func() time.Time // injectable for tests
}

// NewServer creates an API server over the engine collaborators.
func NewServer(store domain.ProgressStore, admin AdminStore, oracle domain.CreditOracle, gate *eligibility.Gate, ledger *cooldown.Ledger, contests []domain.Contest) *Server {
	return &Server{
		store:    store,
		admin:    admin,
		oracle:   oracle,
		gate:     gate,
		ledger:   ledger,
		contests: domain.ContestIndex(contests),
		loc:      domain.ReferenceLocation(),
		version:  "dev",
		now:      time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetPayments sets the checkout-session creator for paid registrations.
func (s *Server) SetPayments(p domain.PaymentSessionCreator) { s.payments = p }

// SetScheduler exposes the reset scheduler on the status endpoint.
func (s *Server) SetScheduler(sched *reset.Scheduler) { s.scheduler = sched }

// SetVersion sets the version string reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/contests", s.handleListContests)
		r.Get("/reset/status", s.handleResetStatus)

		r.Post("/players", s.handleCreatePlayer)
		r.Route("/players/{playerID}", func(r chi.Router) {
			r.Get("/progress", s.handleProgress)
			r.Post("/eligibility", s.handleEligibility)
			r.Post("/devices", s.handleSetDevice)
			r.Post("/boosts/{boostID}/complete", s.handleCompleteBoost)
			r.Post("/challenges/{challengeID}/complete", s.handleCompleteChallenge)
			r.Post("/quests/{questID}/complete", s.handleCompleteQuest)
			r.Post("/contests/{contestID}/register", s.handleRegisterContest)
			r.Post("/assessment", s.handleSubmitAssessment)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
