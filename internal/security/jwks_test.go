package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func base64URLBigInt(n *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(n.Bytes())
}

func base64URLInt(i int) string {
	return base64.RawURLEncoding.EncodeToString(big.NewInt(int64(i)).Bytes())
}

func newJWKSServer(t *testing.T, kid string) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()
	priv, pub := generateTestKeyPair(t)

	jwk := map[string]any{
		"kty": "RSA",
		"kid": kid,
		"use": "sig",
		"alg": "RS256",
		"n":   base64URLBigInt(pub.N),
		"e":   base64URLInt(pub.E),
	}
	body, err := json.Marshal(map[string]any{"keys": []any{jwk}})
	if err != nil {
		t.Fatalf("failed to marshal JWKS document: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	return srv, priv
}

func TestJWKSKeyProvider_ResolvesKnownKid(t *testing.T) {
	srv, _ := newJWKSServer(t, "key-1")
	defer srv.Close()

	provider, err := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, RefreshTimeout: 2 * time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("NewJWKSKeyProvider() error = %v", err)
	}
	defer provider.Close()

	key, err := provider.PublicKey(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}
	if key == nil {
		t.Fatal("PublicKey() returned nil key")
	}
}

func TestJWKSKeyProvider_UnknownKidClassifiesAsKeyNotFound(t *testing.T) {
	srv, _ := newJWKSServer(t, "key-1")
	defer srv.Close()

	provider, err := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, RefreshTimeout: 2 * time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("NewJWKSKeyProvider() error = %v", err)
	}
	defer provider.Close()

	_, err = provider.PublicKey(context.Background(), "unknown-kid")
	if err == nil {
		t.Fatal("expected error for unknown kid")
	}
	var jerr *jwksError
	if !errors.As(err, &jerr) {
		t.Fatalf("error = %v, want *jwksError", err)
	}
	if jerr.kind != KindKeyNotFound {
		t.Errorf("kind = %v, want KindKeyNotFound", jerr.kind)
	}
}

func TestNewJWKSKeyProvider_FetchErrorOnUnreachableURL(t *testing.T) {
	srv, _ := newJWKSServer(t, "key-1")
	srv.Close() // closed immediately: URL is now unreachable

	_, err := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, RefreshTimeout: time.Second}, nil, nil)
	if err == nil {
		t.Fatal("expected error constructing a provider against an unreachable JWKS endpoint")
	}
}
