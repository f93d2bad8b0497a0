package server

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server hosts the gRPC service plane.
type Server struct {
	grpcServer      *grpc.Server
	addr            string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Config defines server settings.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// New creates a server with the health service and reflection registered.
func New(cfg Config, health *HealthServer, logger *slog.Logger) *Server {
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, health)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer:      grpcServer,
		addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Run listens on the configured address and serves until Stop is called.
func (s *Server) Run() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.logger.Info("grpc server listening", slog.String("addr", s.addr))
	if err := s.grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop drains in-flight RPCs and shuts the server down, forcing termination
// if the drain exceeds the shutdown timeout.
func (s *Server) Stop() {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("grpc server stopped gracefully")
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("graceful stop timed out, forcing shutdown",
			slog.Duration("timeout", s.shutdownTimeout))
		s.grpcServer.Stop()
	}
}
