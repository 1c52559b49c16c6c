package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/finsight/internal/core/ports/driving"
	"github.com/custodia-labs/finsight/internal/logger"
)

const (
	// DefaultBodyLimit caps request bodies; pasted documents can be large.
	DefaultBodyLimit = "10M"

	shutdownTimeout = 10 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// MCP is the streamable MCP handler, mounted at /mcp when set.
	MCP http.Handler

	// BodyLimit caps request bodies, e.g. "10M". Defaults to DefaultBodyLimit.
	BodyLimit string

	// Version is reported by the root endpoint.
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg      Config
	analysis driving.AnalysisService
	engine   *echo.Echo
}

// NewServer creates the server and registers its routes.
func NewServer(analysis driving.AnalysisService, cfg Config) *Server {
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = DefaultBodyLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.AllowedOrigins)))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Millisecond))
			return nil
		},
	}))

	s := &Server{cfg: cfg, analysis: analysis, engine: e}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)

	api := s.engine.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/history", s.handleHistory)
	api.GET("/history/:id", s.handleHistoryItem)

	if s.cfg.Metrics != nil {
		s.engine.GET("/metrics", echo.WrapHandler(s.cfg.Metrics))
	}
	if s.cfg.MCP != nil {
		mcpHandler := echo.WrapHandler(s.cfg.MCP)
		s.engine.GET("/mcp", mcpHandler)
		s.engine.POST("/mcp", mcpHandler)
		s.engine.DELETE("/mcp", mcpHandler)
	}
}

func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- s.engine.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	if err := s.engine.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
