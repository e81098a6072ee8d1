// Package api provides the REST API server for headless VibeBoard access.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/cost"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
	"github.com/mattyatplay-coder/vibeboard/pkg/storage"
)

// Server is the VibeBoard API server.
type Server struct {
	cfg        *config.Config
	dispatcher *provider.Dispatcher
	tracker    *cost.Tracker
	store      *storage.Store
	events     bus.MessageBus
	logger     *logging.Logger
	notifier   *cost.BudgetNotifier
	httpServer *http.Server
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Address to listen on (default: 127.0.0.1:8787)
	Address string

	Config     *config.Config
	Dispatcher *provider.Dispatcher
	Tracker    *cost.Tracker
	Store      *storage.Store
	EventBus   bus.MessageBus
	Logger     *logging.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = config.DefaultServerBind
	}

	s := &Server{
		cfg:        cfg.Config,
		dispatcher: cfg.Dispatcher,
		tracker:    cfg.Tracker,
		store:      cfg.Store,
		events:     cfg.EventBus,
		logger:     cfg.Logger,
	}
	if s.tracker != nil {
		s.notifier = cost.NewBudgetNotifier()
		s.notifier.OnAlert(s.onBudgetAlert)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate/image", s.handleGenerateImage)
		r.Post("/generate/video", s.handleGenerateVideo)
		r.Get("/generations", s.handleListGenerations)
		r.Get("/generations/{id}", s.handleGetGeneration)

		r.Get("/providers", s.handleListProviders)
		r.Get("/models", s.handleListModels)

		r.Get("/cost", s.handleCostSummary)
		r.Get("/cost/estimate", s.handleCostEstimate)

		r.Get("/events", s.handleEvents)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // generation calls and SSE run long
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "dispatcher not initialized",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"providers": s.dispatcher.Registry().Len(),
	})
}

// onBudgetAlert surfaces a newly crossed budget threshold: a warning in the
// logs plus a bus event for SSE and other subscribers.
func (s *Server) onBudgetAlert(alert cost.BudgetAlert) {
	if s.logger != nil {
		s.logger.Warn(logging.CategoryCost, "budget_alert",
			string(alert.Level)+" threshold crossed for "+alert.BudgetType+" budget",
			map[string]any{
				"budget":  alert.BudgetType,
				"level":   string(alert.Level),
				"percent": alert.Percent,
				"spent":   alert.Spent,
				"limit":   alert.Budget,
			})
	}
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"budget":  alert.BudgetType,
		"level":   alert.Level,
		"percent": alert.Percent,
		"spent":   alert.Spent,
		"limit":   alert.Budget,
	})
	if err != nil {
		return
	}
	_ = s.events.Publish(context.Background(), bus.SubjectBudgetAlert, payload)
}

// Middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug(logging.CategoryAPI, "http_request", r.Method+" "+r.URL.Path, map[string]any{
				"status": ww.Status(),
				"ms":     time.Since(start).Milliseconds(),
				"remote": r.RemoteAddr,
			})
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
