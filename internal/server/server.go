package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phoenix-mes/phoenix/internal/engine"
)

// Server is the monitoring HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Broker and ExtraRoutes are optional.
type ServerConfig struct {
	Engine *engine.Engine
	Broker *Broker
	Logger *slog.Logger

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	// OpenAPISpec is the embedded OpenAPI YAML served at /openapi.yaml.
	OpenAPISpec []byte

	// ExtraRoutes registers additional routes on the mux before the
	// middleware chain is applied.
	ExtraRoutes func(mux *http.ServeMux)
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Engine:      cfg.Engine,
		Broker:      cfg.Broker,
		Logger:      cfg.Logger,
		Version:     cfg.Version,
		OpenAPISpec: cfg.OpenAPISpec,
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", h.HandleStatus)

	mux.HandleFunc("GET /api/history", h.HandleHistory)
	mux.HandleFunc("DELETE /api/history", h.HandleDeleteRecord)
	mux.HandleFunc("GET /api/export.csv", h.HandleExportCSV)

	mux.HandleFunc("GET /api/metrics", h.HandleMetrics)

	mux.HandleFunc("GET /api/shift", h.HandleGetShift)
	mux.HandleFunc("PUT /api/shift", h.HandlePutShift)

	mux.HandleFunc("GET /api/processes", h.HandleGetProcesses)
	mux.HandleFunc("PUT /api/processes", h.HandlePutProcess)
	mux.HandleFunc("DELETE /api/processes/{id}", h.HandleDeleteProcess)

	mux.HandleFunc("GET /api/events", h.HandleEvents)
	mux.HandleFunc("GET /api/events/recent", h.HandleRecentEvents)

	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	if cfg.ExtraRoutes != nil {
		cfg.ExtraRoutes(mux)
	}

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
