package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/meshpay/payment-service/internal/adapter/handler/http"
	"github.com/meshpay/payment-service/internal/config"
	"github.com/meshpay/payment-service/internal/infrastructure/database"
	providerRegistry "github.com/meshpay/payment-service/internal/infrastructure/provider"
	"github.com/meshpay/payment-service/internal/middleware/auth"
	"github.com/meshpay/payment-service/internal/usecase"
	"github.com/meshpay/payment-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	registry *providerRegistry.Registry
}

func NewServer(cfg *config.Config, log *zap.Logger, repos *database.Repositories, registry *providerRegistry.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())

	return &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		repos:    repos,
		registry: registry,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Prometheus metrics
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize usecases and handlers
	reconciler := usecase.NewReconciler(s.repos.Transactions, s.logger)
	processor := usecase.NewWebhookProcessor(s.repos.Ledger, s.repos.Anomalies, reconciler, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.registry, processor)
	opsHandler := handlers.NewOpsHandler(s.logger, s.repos.Transactions, s.repos.Ledger, s.repos.Anomalies, s.registry)

	// Webhook ingestion (provider-authenticated via signature, no JWT)
	s.echo.POST("/webhooks/:provider", webhookHandler.Handle)

	// JWT middleware configuration for the operator API
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.Ops.JWTSecret,
		Logger: s.logger,
	}

	// Internal operator routes (require JWT authentication)
	internal := s.echo.Group("/internal", auth.JWTMiddleware(jwtConfig))
	internal.GET("/transactions/:ref", opsHandler.GetTransaction)
	internal.POST("/transactions/:ref/refund", opsHandler.Refund)
	internal.GET("/events/:provider/:id", opsHandler.GetEvent)
	internal.GET("/anomalies", opsHandler.ListAnomalies)
}
