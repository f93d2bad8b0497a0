package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
	"github.com/mojeeb/resilience-service/internal/retry"
)

func noWait() retry.Option {
	return retry.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	})
}

func TestClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL).withRetryOptions(noWait())

	resp, err := client.Get(context.Background(), "/v1/agents")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("status = %d, want 2xx", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if string(resp.Body) != `{"status":"ok"}` {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL).withRetryOptions(noWait())

	_, err := client.Get(context.Background(), "/v1/agents/missing")

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClientExhaustsBudgetOnPersistentFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL).withRetryOptions(noWait())

	_, err := client.Get(context.Background(), "/v1/conversations")

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apiErr.Status)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (default budget)", got)
	}
}

func TestClientSendsDefaultHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotTenant string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTenant = r.Header.Get("X-Tenant-ID")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL).
		WithHeader("Authorization", "Bearer token-1").
		WithHeader("X-Tenant-ID", "org-7")

	_, err := client.Delete(context.Background(), "/v1/agents/a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer token-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotTenant != "org-7" {
		t.Errorf("X-Tenant-ID = %q", gotTenant)
	}
}

func TestClientClassifiesTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	policy := domain.RetryPolicy{MaxAttempts: 2, MaxDelay: time.Second}
	client := New(server.URL).WithPolicy(policy).withRetryOptions(noWait())

	_, err := client.Get(context.Background(), "/v1/agents")

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *domain.APIError", err)
	}
	if apiErr.Status != 0 {
		t.Errorf("status = %d, want none", apiErr.Status)
	}
}

func TestClientPostBody(t *testing.T) {
	t.Parallel()

	var gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL)

	resp, err := client.Post(context.Background(), "/v1/agents", []byte(`{"name":"support-bot"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if string(gotBody) != `{"name":"support-bot"}` {
		t.Errorf("body = %q", gotBody)
	}
}
