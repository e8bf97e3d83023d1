package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/custody-gateway/internal/adapter/handler/http"
	"github.com/wekeepgrowing/custody-gateway/internal/config"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/database"
	"github.com/wekeepgrowing/custody-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
	"github.com/wekeepgrowing/custody-gateway/pkg/logger"
)

const healthTimeout = 2 * time.Second

// Usecases groups the application services the HTTP API exposes.
type Usecases struct {
	Provisioning *usecase.ProvisioningUsecase
	Accounts     *usecase.AccountUsecase
	Payments     *usecase.PaymentUsecase
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	usecases Usecases
	registry *prometheus.Registry
}

func NewServer(cfg *config.Config, log *zap.Logger, repos *database.Repositories, usecases Usecases) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  cfg.Service.Name,
		Registerer: registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		repos:    repos,
		usecases: usecases,
		registry: registry,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be mounted on an arbitrary listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: s.registry}))

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(s.usecases.Provisioning, s.usecases.Accounts, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.usecases.Payments, s.logger)
	internalHandler := handlers.NewInternalHandler(s.usecases.Accounts, s.usecases.Payments, s.logger)

	api := s.echo.Group("/api")

	// Registration is the only unauthenticated public route
	api.POST("/account", accountHandler.Provision)

	protected := api.Group("", auth.APIKeyMiddleware(auth.APIKeyConfig{
		Authenticator: s.usecases.Accounts,
		Logger:        s.logger,
	}))
	protected.GET("/account", accountHandler.GetAccount)
	protected.GET("/balance", accountHandler.GetBalance)
	protected.POST("/webhooks", accountHandler.ConfigureWebhook)
	protected.POST("/payments", paymentHandler.CreatePayment)
	protected.GET("/payments", paymentHandler.ListPayments)
	protected.GET("/payments/:id", paymentHandler.GetPayment)
	protected.GET("/payments/:id/address", paymentHandler.GetPaymentAddress)

	// Mediator routes
	internal := api.Group("/internal", auth.InternalSecretMiddleware(s.config.Service.InternalSecret, s.logger))
	internal.POST("/balance-update", internalHandler.UpdateBalance)
	internal.POST("/assign-custody", internalHandler.AssignCustody)
	internal.POST("/payment-create", internalHandler.CreatePayment)
	internal.POST("/payment-update", internalHandler.UpdatePayment)
	internal.GET("/accounts/awaiting-custody", internalHandler.AwaitingCustody)
	internal.GET("/payments/awaiting-address", internalHandler.AwaitingAddress)
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := s.repos.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"service": s.config.Service.Name,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.config.Service.Name,
		"network": s.config.Service.Network,
	})
}
