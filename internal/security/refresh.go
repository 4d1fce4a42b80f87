package security

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/infra/resilience"
	"github.com/makrx-community/gateway-security-core/internal/infra/wrapper"
)

func base64URLDecode(segment string) ([]byte, error) {
	if m := len(segment) % 4; m != 0 {
		segment += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(segment)
}

// Refresh client defaults, ported from the original service's
// TokenRefreshService (spec §4.8).
const (
	DefaultRefreshThreshold = 300 * time.Second
	maxRefreshAttempts      = 3
	refreshRetryDelay       = time.Second
	refreshHTTPTimeout      = 10 * time.Second

	defaultExpiresIn = 900 // seconds, used when the IdP omits expires_in
)

// TokenInfo is the normalized token response from the identity provider.
type TokenInfo struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
	Scope        string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// RefreshClientConfig configures a TokenRefreshClient's identity-provider
// endpoint and credentials.
type RefreshClientConfig struct {
	KeycloakURL  string
	Realm        string
	ClientID     string
	ClientSecret string
	Clock        Clock
}

func (c RefreshClientConfig) tokenEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(c.KeycloakURL, "/"), c.Realm)
}

func (c RefreshClientConfig) revokeEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/revoke", strings.TrimRight(c.KeycloakURL, "/"), c.Realm)
}

// TokenRefreshClient exchanges refresh tokens for new access tokens against
// an OIDC-compatible identity provider, retrying transient failures with a
// fixed delay and short-circuiting on responses that retrying cannot fix
// (spec §4.8). A circuit breaker wraps the whole call so a degraded identity
// provider fails fast once it has failed enough in a row (SPEC_FULL §10
// enrichment, beyond what the original did).
type TokenRefreshClient struct {
	cfg     RefreshClientConfig
	http    *http.Client
	breaker resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewTokenRefreshClient wires a client against cfg. logger defaults to
// slog.Default() when nil.
func NewTokenRefreshClient(cfg RefreshClientConfig, breaker resilience.CircuitBreaker, logger *slog.Logger) *TokenRefreshClient {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRefreshClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: refreshHTTPTimeout},
		breaker: breaker,
		logger:  logger,
	}
}

// refreshNonRetryable marks an error as final: the retry loop must not
// attempt another round.
type refreshNonRetryable struct{ err *apierror.Error }

func (e *refreshNonRetryable) Error() string { return e.err.Error() }

// RefreshAccessToken exchanges refreshToken for a new TokenInfo. It retries
// up to maxRefreshAttempts times with a fixed one-second delay between
// attempts; a 400 or 401 response is treated as permanent (the refresh token
// itself is bad) and is not retried.
func (c *TokenRefreshClient) RefreshAccessToken(ctx context.Context, refreshToken, requestID string) (TokenInfo, error) {
	c.logger.InfoContext(ctx, "attempting token refresh", slog.String("request_id", requestID))

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	backoff := retry.WithMaxRetries(uint64(maxRefreshAttempts-1), retry.NewConstant(refreshRetryDelay))

	var result TokenInfo
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		raw, err := c.breaker.Execute(ctx, func() (any, error) {
			return c.post(ctx, c.cfg.tokenEndpoint(), form)
		})
		if err != nil {
			if nr, ok := err.(*refreshNonRetryable); ok {
				return nr
			}
			c.logger.WarnContext(ctx, "token refresh attempt failed",
				slog.Int("attempt", attempt), slog.String("request_id", requestID), slog.Any("error", err))
			if attempt >= maxRefreshAttempts {
				return err
			}
			return retry.RetryableError(err)
		}

		result = raw.(TokenInfo)
		return nil
	})

	if err != nil {
		if nr, ok := err.(*refreshNonRetryable); ok {
			return TokenInfo{}, nr.err
		}
		c.logger.ErrorContext(ctx, "token refresh exhausted retries",
			slog.String("request_id", requestID), slog.Any("error", err))
		code, message := "token_service_unavailable", "Token refresh service temporarily unavailable"
		if isTimeoutErr(err) {
			code, message = "token_service_timeout", "Token refresh service timeout"
		}
		return TokenInfo{}, apierror.NewAPI(code, message, http.StatusServiceUnavailable).WithCause(err)
	}

	c.logger.InfoContext(ctx, "token refresh succeeded", slog.String("request_id", requestID))
	return result, nil
}

// post performs the token-endpoint POST and classifies the response. A 400
// or 401 is wrapped in refreshNonRetryable since retrying cannot change the
// outcome; any other non-200 or transport error is returned plain so the
// retry loop treats it as transient.
func (c *TokenRefreshClient) post(ctx context.Context, endpoint string, form url.Values) (TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenInfo{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "MakrX-Backend/1.0")

	resp, err := wrapper.DoRequest(ctx, c.http, req)
	if err != nil {
		return TokenInfo{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenInfo{}, &refreshNonRetryable{err: apierror.NewAPI("token_refresh_failed",
			"Token refresh failed due to internal error", http.StatusInternalServerError).WithCause(err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		info, err := c.parseTokenResponse(body)
		if err != nil {
			return TokenInfo{}, &refreshNonRetryable{err: apierror.NewAPI("token_refresh_failed",
				"Token refresh failed due to internal error", http.StatusInternalServerError).WithCause(err)}
		}
		return info, nil
	case http.StatusBadRequest:
		return TokenInfo{}, &refreshNonRetryable{err: apierror.NewAPI("invalid_refresh_token",
			"Refresh token is invalid or expired", http.StatusUnauthorized)}
	case http.StatusUnauthorized:
		return TokenInfo{}, &refreshNonRetryable{err: apierror.NewAPI("refresh_token_expired",
			"Refresh token has expired, please login again", http.StatusUnauthorized)}
	default:
		return TokenInfo{}, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
}

// isTimeoutErr reports whether err (possibly wrapped by the retry loop)
// originated from a request or context timeout, distinguishing
// token_service_timeout from token_service_unavailable once retries are
// exhausted (spec §4.8).
func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *TokenRefreshClient) parseTokenResponse(body []byte) (TokenInfo, error) {
	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return TokenInfo{}, fmt.Errorf("parsing token response: %w", err)
	}
	if raw.AccessToken == "" {
		return TokenInfo{}, fmt.Errorf("token response missing access_token")
	}
	if raw.ExpiresIn <= 0 {
		raw.ExpiresIn = defaultExpiresIn
	}
	if raw.TokenType == "" {
		raw.TokenType = "Bearer"
	}

	now := c.cfg.Clock()
	return TokenInfo{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    raw.ExpiresIn,
		TokenType:    raw.TokenType,
		Scope:        raw.Scope,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Duration(raw.ExpiresIn) * time.Second),
	}, nil
}

// CheckTokenExpiration reports whether accessToken is within
// DefaultRefreshThreshold of expiring (or already expired, or unparsable),
// and how many seconds remain. It does not verify the token's signature;
// this is a proactive scheduling hint, not an authorization decision (spec
// §10, supplemented from the original's check_token_expiration).
func (c *TokenRefreshClient) CheckTokenExpiration(accessToken string) (needsRefresh bool, secondsLeft int) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return true, 0
	}
	claims, err := decodeUnverifiedClaims(parts[1])
	if err != nil {
		return true, 0
	}
	exp := toTime(claims["exp"])
	if exp.IsZero() {
		return true, 0
	}

	remaining := exp.Sub(c.cfg.Clock())
	if remaining <= 0 {
		return true, 0
	}
	return remaining <= DefaultRefreshThreshold, int(remaining.Seconds())
}

func decodeUnverifiedClaims(segment string) (map[string]any, error) {
	decoded, err := base64URLDecode(segment)
	if err != nil {
		return nil, err
	}
	var claims map[string]any
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExtractRefreshTokenFromRequest pulls a refresh token from the "Refresh "
// Authorization scheme, the X-Refresh-Token header, or the refresh_token
// cookie, in that order (spec §10).
func ExtractRefreshTokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Refresh ") {
		return strings.TrimPrefix(auth, "Refresh ")
	}
	if h := r.Header.Get("X-Refresh-Token"); h != "" {
		return h
	}
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// RevokeRefreshToken revokes refreshToken at the identity provider's revoke
// endpoint. Failure to revoke is logged but never returned as fatal to the
// caller; logout always succeeds from the client's perspective (spec §10,
// matching the original's logout_endpoint).
func (c *TokenRefreshClient) RevokeRefreshToken(ctx context.Context, refreshToken, requestID string) bool {
	form := url.Values{
		"token":         {refreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.revokeEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.ErrorContext(ctx, "building revoke request", slog.String("request_id", requestID), slog.Any("error", err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "MakrX-Backend/1.0")

	resp, err := wrapper.DoRequest(ctx, c.http, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "revoking refresh token", slog.String("request_id", requestID), slog.Any("error", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "token revocation failed",
			slog.Int("status", resp.StatusCode), slog.String("request_id", requestID))
		return false
	}
	return true
}

// TokenResponseHeaders builds the advisory headers attached to a successful
// refresh response (spec §10, from the original's
// create_token_response_headers).
func TokenResponseHeaders(info TokenInfo) http.Header {
	h := http.Header{}
	h.Set("X-Token-Expires-In", strconv.Itoa(info.ExpiresIn))
	h.Set("X-Token-Type", info.TokenType)
	if !info.ExpiresAt.IsZero() {
		h.Set("X-Token-Expires-At", info.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return h
}
