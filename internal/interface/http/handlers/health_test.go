package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockDependencyChecker struct {
	err error
}

func (m *mockDependencyChecker) Ping(ctx context.Context) error {
	return m.err
}

func TestReadyzHandler_HealthyDependency(t *testing.T) {
	handler := NewReadyzHandler(&mockDependencyChecker{err: nil})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("body = %q, want to contain 'ready'", rec.Body.String())
	}
}

func TestReadyzHandler_UnhealthyDependency(t *testing.T) {
	handler := NewReadyzHandler(&mockDependencyChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unreachable") {
		t.Errorf("body = %q, want to contain 'unreachable'", rec.Body.String())
	}
}

func TestReadyzHandler_NilChecker(t *testing.T) {
	handler := NewReadyzHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (dependency check is optional)", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q, want to contain 'ok'", rec.Body.String())
	}
}
