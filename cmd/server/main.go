package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/config"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/custody-gateway/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/custody-gateway/internal/infrastructure/http"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/messaging"
	"github.com/wekeepgrowing/custody-gateway/internal/infrastructure/webhook"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
	"github.com/wekeepgrowing/custody-gateway/pkg/logger"
	pkgmessaging "github.com/wekeepgrowing/custody-gateway/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("network", cfg.Service.Network),
	)

	zapLogger.Info("Configuration loaded",
		zap.String("path", configPath),
		zap.String("environment", cfg.Service.Environment),
		zap.String("store", cfg.Store.Driver))
	zapLogger.Debug("Effective configuration", zap.String("config", cfg.Describe()))

	// Initialize repositories; the store connection opens on first use
	repos, err := database.NewRepositories(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repositories", zap.Error(err))
	}

	opts := usecase.Options{Network: cfg.Service.Network}

	// Mediator announcements are optional; discovery endpoints cover polling
	var redisClient pkgmessaging.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = pkgmessaging.NewRedisClient(pkgmessaging.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		opts.Publisher = messaging.NewRedisPublisher(redisClient, cfg.Redis.Channel, zapLogger)
	}

	dispatcher := webhook.NewDispatcher(cfg.Webhook, zapLogger)

	usecases := httpServer.Usecases{
		Provisioning: usecase.NewProvisioningUsecase(
			repos.Account,
			crypto.NewBcryptHasher(cfg.Service.BcryptCost),
			crypto.NewTokenGenerator(),
			opts,
			zapLogger,
		),
		Accounts: usecase.NewAccountUsecase(repos.Account, opts, zapLogger),
		Payments: usecase.NewPaymentUsecase(repos.Payment, repos.Account, dispatcher, cfg.Service.PaymentTTL, opts, zapLogger),
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger, repos)
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, usecases)

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	zapLogger.Info("Shutting down servers...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first so no new deliveries are scheduled
	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	if err := dispatcher.Wait(ctx); err != nil {
		zapLogger.Warn("Pending webhook deliveries abandoned", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := repos.Close(ctx); err != nil {
		zapLogger.Error("Failed to close store", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
