package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	mw "github.com/tphakala/marcharvest/internal/api/middleware"
	v1 "github.com/tphakala/marcharvest/internal/api/v1"
	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/harvest"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/observability"
)

// Server is the HTTP server of the harvester.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	db        *gorm.DB
	driver    *harvest.Driver
	inspector *harvest.Inspector
	metrics   *observability.Metrics

	apiController *v1.Controller
	startTime     time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithDB sets the record store.
func WithDB(db *gorm.DB) ServerOption {
	return func(s *Server) { s.db = db }
}

// WithDriver sets the harvest driver behind the collect endpoints.
func WithDriver(d *harvest.Driver) ServerOption {
	return func(s *Server) { s.driver = d }
}

// WithInspector sets the inspector behind the file endpoints.
func WithInspector(i *harvest.Inspector) ServerOption {
	return func(s *Server) { s.inspector = i }
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithConfig replaces the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) { s.config = cfg }
}

// New creates a Server. The db, driver and inspector options are required.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		log:       GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil || s.driver == nil || s.inspector == nil {
		return nil, errors.New("api server requires a database, driver and inspector")
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	}))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil && s.config.MetricsEnabled {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	s.apiController = v1.New(s.echo, s.db, s.driver, s.inspector)
	s.log.Info("routes initialized", logger.String("api_prefix", v1.Prefix))
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	status := "healthy"
	code := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status": status,
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("listen", s.config.Listen))
		errCh <- s.echo.Start(s.config.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, initiating graceful shutdown")
	if err := s.Shutdown(); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// APIController returns the /api/v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}
