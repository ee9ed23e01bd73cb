package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/audit"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/cache"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/compliance"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/events"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/logger"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/security"
)

// Version is the reported service version
const Version = "0.1.0"

// Server is the anonymization gateway: it owns the engine, the event
// hub and the optional cache and audit collaborators, and serves the
// HTTP API.
type Server struct {
	cfg      *config.Config
	logger   *logger.Logger
	detector *pii.Detector
	engine   *anonymize.Engine
	hub      *events.Hub
	cache    *cache.ResultCache
	audit    *audit.Store
	limiter  *security.RateLimiter
	router   *mux.Router
	server   *http.Server

	started    time.Time
	requests   atomic.Int64
	detections atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new gateway server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	detector, err := pii.New(pii.Config{Detectors: cfg.Engine.Detectors}, log.WithComponent("pii").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PII detector: %w", err)
	}

	engine := anonymize.NewEngine(detector, log)
	hub := events.NewHub(cfg.Events, log.WithComponent("events").Logger)
	limiter := security.NewRateLimiter(cfg.Limits)

	s := &Server{
		cfg:      cfg,
		logger:   log.WithComponent("server"),
		detector: detector,
		engine:   engine,
		hub:      hub,
		limiter:  limiter,
		router:   mux.NewRouter(),
		started:  time.Now(),
		stop:     make(chan struct{}),
	}

	// Cache and audit degrade to disabled when their backends are
	// unreachable; anonymization itself must not depend on either.
	if cfg.Cache.Enabled {
		rc, err := cache.New(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			s.logger.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.cache = rc
		}
	}

	if cfg.Audit.Enabled {
		store, err := audit.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			s.logger.Warn("Audit store unavailable, continuing without it", zap.Error(err))
		} else {
			s.audit = store
		}
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Operational endpoints
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")

	if s.cfg.Events.Enabled {
		path := s.cfg.Events.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.hub.HandleWebSocket).Methods("GET")
	}

	// API endpoints
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.requestIDMiddleware)
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodyLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/compliance/check", s.handleComplianceCheck).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting anonymization gateway",
		zap.Int("port", s.cfg.Server.Port),
		zap.Strings("detectors", s.cfg.Engine.Detectors),
		zap.String("default_strategy", string(s.cfg.Engine.Policy.DefaultStrategy)),
		zap.Bool("cache", s.cache != nil),
		zap.Bool("audit", s.audit != nil),
	)

	go s.hub.Run()
	go s.statusReporter()
	s.limiter.StartCleanupRoutine(s.stop)

	return s.server.ListenAndServe()
}

// statusInterval is the cadence of system status broadcasts.
const statusInterval = 30 * time.Second

// statusReporter broadcasts system status events while the server runs
func (s *Server) statusReporter() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			s.hub.BroadcastEvent(events.Event{
				Type:      events.EventTypeSystemStatus,
				Timestamp: time.Now(),
				Data: events.SystemStatusEvent{
					Status:           "healthy",
					Uptime:           time.Since(s.started).Round(time.Second).String(),
					TotalRequests:    s.requests.Load(),
					TotalDetections:  s.detections.Load(),
					ActiveRules:      len(s.detector.EnabledTypes()),
					ConnectedClients: int(s.hub.GetStats().ActiveConnections),
					MemoryUsage:      fmt.Sprintf("%.1f MB", float64(mem.Alloc)/1024/1024),
				},
			})
		}
	}
}

// Stop gracefully stops the HTTP server and its collaborators
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping anonymization gateway")
	s.stopOnce.Do(func() { close(s.stop) })

	err := s.server.Shutdown(ctx)

	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil {
			s.logger.Warn("Failed to close cache", zap.Error(cerr))
		}
	}
	if s.audit != nil {
		if aerr := s.audit.Close(); aerr != nil {
			s.logger.Warn("Failed to close audit store", zap.Error(aerr))
		}
	}

	return err
}

// Hub returns the event hub for broadcasting
func (s *Server) Hub() *events.Hub {
	return s.hub
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":             "data-vault",
		"version":          Version,
		"detectors":        s.detector.EnabledTypes(),
		"default_strategy": s.cfg.Engine.Policy.DefaultStrategy,
		"frameworks":       compliance.Frameworks(),
		"cache_enabled":    s.cache != nil,
		"audit_enabled":    s.audit != nil,
	})
}

// handleStats handles stats requests
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"uptime":           time.Since(s.started).Round(time.Second).String(),
		"total_requests":   s.requests.Load(),
		"total_detections": s.detections.Load(),
		"rate_limited_ips": s.limiter.ActiveClients(),
		"hub":              s.hub.GetStats(),
	}

	if s.cache != nil {
		if cs, err := s.cache.GetStats(r.Context()); err == nil {
			stats["cache"] = cs
		} else {
			s.logger.Warn("Failed to collect cache stats", zap.Error(err))
		}
	}
	if s.audit != nil {
		if as, err := s.audit.GetStats(r.Context()); err == nil {
			stats["audit"] = as
		} else {
			s.logger.Warn("Failed to collect audit stats", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, stats)
}
