package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/makrx-community/gateway-security-core/internal/interface/http/middleware"
)

func TestEnvelope_SetsResponseTimeHeader(t *testing.T) {
	handler := middleware.Envelope(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Response-Time"); !strings.HasSuffix(got, "ms") {
		t.Errorf("X-Response-Time = %q, want a millisecond-suffixed value", got)
	}
}

func TestEnvelope_RecoversPanicIntoErrorResponse(t *testing.T) {
	handler := middleware.Envelope(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	// Must not panic out of the test.
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "An internal server error occurred") {
		t.Errorf("body = %q, want fixed fallback message", rec.Body.String())
	}
}

func TestEnvelope_PassesThroughNormalResponses(t *testing.T) {
	handler := middleware.Envelope(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q, want passthrough", rec.Body.String())
	}
}
