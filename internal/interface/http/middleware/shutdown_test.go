package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/infra/resilience"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/middleware"
)

func newCoordinator(t *testing.T) resilience.ShutdownCoordinator {
	t.Helper()
	return resilience.NewShutdownCoordinator(resilience.ShutdownConfig{
		DrainPeriod: time.Second,
		GracePeriod: time.Second,
	})
}

func TestShutdown_AllowsRequestsBeforeShutdown(t *testing.T) {
	coordinator := newCoordinator(t)
	handler := middleware.Shutdown(coordinator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestShutdown_RejectsAfterShutdownInitiated(t *testing.T) {
	coordinator := newCoordinator(t)
	coordinator.InitiateShutdown()

	handler := middleware.Shutdown(coordinator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestShutdown_WithNilCoordinator(t *testing.T) {
	handler := middleware.Shutdown(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
