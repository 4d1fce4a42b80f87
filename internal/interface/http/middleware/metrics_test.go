package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makrx-community/gateway-security-core/internal/interface/http/middleware"
)

type fakeRecorder struct {
	incCalls     []string
	observeCalls []string
}

func (f *fakeRecorder) IncRequest(method, route, status string) {
	f.incCalls = append(f.incCalls, method+" "+route+" "+status)
}

func (f *fakeRecorder) ObserveRequestDuration(method, route string, seconds float64) {
	f.observeCalls = append(f.observeCalls, method+" "+route)
}

func TestMetrics_RecordsRequestCountAndDuration(t *testing.T) {
	recorder := &fakeRecorder{}

	handler := middleware.Metrics(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if len(recorder.incCalls) != 1 || recorder.incCalls[0] != "POST /auth/refresh 201" {
		t.Fatalf("incCalls = %v, want one entry for POST /auth/refresh 201", recorder.incCalls)
	}
	if len(recorder.observeCalls) != 1 || recorder.observeCalls[0] != "POST /auth/refresh" {
		t.Fatalf("observeCalls = %v, want one entry for POST /auth/refresh", recorder.observeCalls)
	}
}

func TestMetrics_WithNilRecorder(t *testing.T) {
	handler := middleware.Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
