package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wekeepgrowing/custody-gateway/internal/config"
	"github.com/wekeepgrowing/custody-gateway/pkg/logger"
)

const (
	defaultProbeInterval = 15 * time.Second
	probeTimeout         = 2 * time.Second
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes grpc.health.v1.Health. The service named after the gateway
// follows the store health; the overall status "" is SERVING until shutdown.
type Server struct {
	config        *config.Config
	logger        *zap.Logger
	server        *grpc.Server
	health        *health.Server
	store         Pinger
	probeInterval time.Duration
	probeCtx      context.Context
	stopProbe     context.CancelFunc
}

func NewServer(cfg *config.Config, log *zap.Logger, store Pinger) *Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logger.NewGrpcUnaryServerInterceptor(log)),
		grpc.ChainStreamInterceptor(logger.NewGrpcStreamServerInterceptor(log)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	probeCtx, stopProbe := context.WithCancel(context.Background())
	return &Server{
		config:        cfg,
		logger:        log,
		server:        server,
		health:        healthServer,
		store:         store,
		probeInterval: defaultProbeInterval,
		probeCtx:      probeCtx,
		stopProbe:     stopProbe,
	}
}

func (s *Server) Start() error {
	addr := s.config.Server.GRPC.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Starting gRPC server", zap.String("address", addr))
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.probe(s.probeCtx)
	go s.monitor(s.probeCtx)

	return s.server.Serve(listener)
}

func (s *Server) monitor(ctx context.Context) {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Store health probe failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(s.config.Service.Name, status)
}

// Shutdown marks every service NOT_SERVING and drains in-flight calls until
// ctx is done, after which remaining calls are cut.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopProbe()
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
