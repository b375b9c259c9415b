// Package httpapi exposes the ask pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/orchestrator"
)

// SessionHeader routes a request to a named conversation session. Requests
// without it share the default session.
const SessionHeader = "X-Session-ID"

// Asker answers one question within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (orchestrator.TurnResult, error)
}

// Server is the HTTP front end.
type Server struct {
	echo   *echo.Echo
	asker  Asker
	logger *zap.Logger
	addr   string
}

// NewServer builds the HTTP server with routes and middleware installed.
// gatherer feeds the /metrics endpoint; pass prometheus.DefaultGatherer in
// production.
func NewServer(cfg config.ServerConfig, asker Asker, gatherer prometheus.Gatherer, logger *zap.Logger) (*Server, error) {
	if asker == nil {
		return nil, errors.New("asker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:   e,
		asker:  asker,
		logger: logger,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}

	e.POST("/rag", s.handleAsk)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s, nil
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

type askRequest struct {
	Usermsg string `json:"usermsg" form:"usermsg"`
}

type askResponse struct {
	AI string `json:"ai"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	if req.Usermsg == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "usermsg is required"})
	}

	sessionID := c.Request().Header.Get(SessionHeader)

	result, err := s.asker.Ask(c.Request().Context(), sessionID, req.Usermsg)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusCreated, askResponse{AI: result.Answer})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
