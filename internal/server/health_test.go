package server

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheckServing(t *testing.T) {
	t.Parallel()

	healthy := HealthCheckerFunc(func(ctx context.Context) error { return nil })
	h := NewHealthServer(healthy, healthy)

	resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.Status)
	}
}

func TestHealthCheckNotServing(t *testing.T) {
	t.Parallel()

	healthy := HealthCheckerFunc(func(ctx context.Context) error { return nil })
	broken := HealthCheckerFunc(func(ctx context.Context) error {
		return errors.New("redis unreachable")
	})
	h := NewHealthServer(healthy, broken)

	resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.Status)
	}
}

func TestHealthCheckNoCheckers(t *testing.T) {
	t.Parallel()

	h := NewHealthServer()

	resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.Status)
	}
}
