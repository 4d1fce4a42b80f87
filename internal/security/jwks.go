package security

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSConfig configures a JWKSKeyProvider's remote key set and refresh
// cadence (spec §4.2, Keycloak/OIDC-compatible identity provider).
type JWKSConfig struct {
	URL              string
	RefreshInterval  time.Duration
	RefreshTimeout   time.Duration
	RefreshRateLimit time.Duration
}

func (c JWKSConfig) withDefaults() JWKSConfig {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = time.Hour
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 10 * time.Second
	}
	if c.RefreshRateLimit <= 0 {
		c.RefreshRateLimit = 5 * time.Minute
	}
	return c
}

// JWKSKeyProvider resolves RSA public keys by kid from a Keycloak/OIDC JWKS
// endpoint. The key set is fetched once at construction and refreshed in the
// background by keyfunc; an unknown kid triggers an immediate out-of-band
// refresh (key rotation) before failing.
type JWKSKeyProvider struct {
	jwks   *keyfunc.JWKS
	events *EventLogger
	logger *slog.Logger
}

// NewJWKSKeyProvider fetches cfg.URL once and starts background refresh.
// events, if non-nil, receives a JWKS_FETCH_ERROR security event whenever a
// background refresh fails; logger defaults to slog.Default() when nil.
func NewJWKSKeyProvider(cfg JWKSConfig, events *EventLogger, logger *slog.Logger) (*JWKSKeyProvider, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := &JWKSKeyProvider{events: events, logger: logger}

	jwks, err := keyfunc.Get(cfg.URL, keyfunc.Options{
		RefreshInterval:   cfg.RefreshInterval,
		RefreshTimeout:    cfg.RefreshTimeout,
		RefreshRateLimit:  cfg.RefreshRateLimit,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			p.logger.Error("jwks background refresh failed", slog.String("url", cfg.URL), slog.String("error", err.Error()))
			if p.events != nil {
				event := NewEvent(time.Now(), KindJWKSFetchError, "background", "", "").
					WithDetails(map[string]any{"url": cfg.URL, "error": err.Error()})
				event.Level = LevelMedium
				p.events.Log(context.Background(), event)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("security: fetching jwks from %s: %w", cfg.URL, err)
	}
	p.jwks = jwks
	return p, nil
}

// jwksError lets classifyParseError recover the Kind a key-lookup failure
// should classify as, instead of falling back to the generic
// KindMalformedToken for every keyFunc error.
type jwksError struct {
	kind Kind
	err  error
}

func (e *jwksError) Error() string { return e.err.Error() }
func (e *jwksError) Unwrap() error { return e.err }

// PublicKey implements KeyProvider against the cached JWKS.
func (p *JWKSKeyProvider) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	token := &jwt.Token{Header: map[string]any{"kid": kid, "alg": "RS256"}}

	raw, err := p.jwks.Keyfunc(token)
	if err != nil {
		return nil, &jwksError{kind: KindKeyNotFound, err: fmt.Errorf("resolving kid %q: %w", kid, err)}
	}
	key, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, &jwksError{kind: KindKeyNotFound, err: fmt.Errorf("key for kid %q is not RSA", kid)}
	}
	return key, nil
}

// Close stops the background refresh goroutine. Call during shutdown.
func (p *JWKSKeyProvider) Close() {
	p.jwks.EndBackground()
}
