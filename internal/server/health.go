// Package server provides the gRPC service plane.
package server

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// HealthServer implements the standard gRPC health check service, aggregating
// the health of the service's backing dependencies.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	checkers []HealthChecker
}

// NewHealthServer creates a health server over the given checkers. With no
// checkers the server always reports SERVING.
func NewHealthServer(checkers ...HealthChecker) *HealthServer {
	return &HealthServer{checkers: checkers}
}

// Check performs a health check.
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	for _, checker := range h.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			return &grpc_health_v1.HealthCheckResponse{
				Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
			}, nil
		}
	}
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}

// Watch performs a streaming health check, sending the current status
// immediately and then on a fixed interval.
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	resp, err := h.Check(stream.Context(), req)
	if err != nil {
		return err
	}
	if err := stream.Send(resp); err != nil {
		return err
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
			resp, err := h.Check(stream.Context(), req)
			if err != nil {
				return status.Errorf(codes.Internal, "health check failed: %v", err)
			}
			if err := stream.Send(resp); err != nil {
				return err
			}
		}
	}
}
