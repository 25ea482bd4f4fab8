package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/intrinsic/internal/api/handler/api"
	"github.com/newthinker/intrinsic/internal/api/middleware"
	"github.com/newthinker/intrinsic/internal/metrics"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
	cfg        Config
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	JWTSecret   string
	APIKey      string
	MetricsPath string
}

// Dependencies holds the collaborators the routes call into. Metrics may be nil.
type Dependencies struct {
	App     handler.StockApp
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("api: app is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger.Named("api"),
		mux:    mux,
		deps:   deps,
		cfg:    cfg,
	}
	s.setupRoutes()

	var h http.Handler = mux
	h = metrics.HTTPMiddleware(deps.Metrics)(h)
	h = metrics.LoggingMiddleware(s.logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // statement fetches can be slow
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.deps.Metrics != nil {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(s.deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	auth := middleware.Auth(middleware.AuthConfig{
		JWTSecret: s.cfg.JWTSecret,
		APIKey:    s.cfg.APIKey,
	})
	stock := handler.NewStockHandler(s.deps.App)

	s.mux.Handle("POST /stock/search", auth(http.HandlerFunc(stock.Search)))
	s.mux.Handle("POST /stock/valuation", auth(http.HandlerFunc(stock.Valuation)))
	s.mux.Handle("GET /stock/market-data/{code}", auth(http.HandlerFunc(stock.MarketData)))
	s.mux.Handle("GET /stock/valuations/{code}", auth(http.HandlerFunc(stock.History)))
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
