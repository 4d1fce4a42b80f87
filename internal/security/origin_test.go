package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveOrigin_PrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	r.Header.Set("X-Real-IP", "198.51.100.1")
	r.RemoteAddr = "192.0.2.1:443"

	if got := ResolveOrigin(r); got != "203.0.113.1" {
		t.Fatalf("ResolveOrigin() = %q, want 203.0.113.1", got)
	}
}

func TestResolveOrigin_FallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.1")
	r.RemoteAddr = "192.0.2.1:443"

	if got := ResolveOrigin(r); got != "198.51.100.1" {
		t.Fatalf("ResolveOrigin() = %q, want 198.51.100.1", got)
	}
}

func TestResolveOrigin_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:443"

	if got := ResolveOrigin(r); got != "192.0.2.1" {
		t.Fatalf("ResolveOrigin() = %q, want 192.0.2.1", got)
	}
}

func TestResolveOrigin_UnknownWhenNothingAvailable(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ""

	if got := ResolveOrigin(r); got != "unknown" {
		t.Fatalf("ResolveOrigin() = %q, want unknown", got)
	}
}
