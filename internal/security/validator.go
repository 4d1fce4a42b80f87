package security

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
)

// defaults for ValidatorConfig fields left zero.
const (
	defaultMaxTokenAge      = 24 * time.Hour
	defaultMinTokenLifetime = 5 * time.Minute
	defaultMinSubjectLength = 8
	defaultLeeway           = 30 * time.Second

	serviceTokenType = "service"
)

// KeyProvider resolves the RSA public key that signed a token, keyed by the
// JOSE "kid" header. JWKS fetching/caching is out of scope here; a caller
// wires a concrete implementation (spec §4.3, Non-goals).
type KeyProvider interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// RequestContext carries the request attributes every rejected validation
// needs to build a Security Event.
type RequestContext struct {
	Origin    string
	UserAgent string
	RequestID string
}

// ValidatorConfig configures a Validator's expected issuer, audience, and
// age/lifetime policy.
type ValidatorConfig struct {
	Issuer              string
	Audience            string
	AdditionalAudiences []string
	MaxTokenAge         time.Duration
	MinTokenLifetime    time.Duration
	MinSubjectLength    int
	Clock               Clock
}

func (c ValidatorConfig) withDefaults() ValidatorConfig {
	if c.MaxTokenAge <= 0 {
		c.MaxTokenAge = defaultMaxTokenAge
	}
	if c.MinTokenLifetime <= 0 {
		c.MinTokenLifetime = defaultMinTokenLifetime
	}
	if c.MinSubjectLength <= 0 {
		c.MinSubjectLength = defaultMinSubjectLength
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Validator implements the JWT validation algorithm of spec §4.3: signature
// and standard-claims verification, required-claims enforcement, token-age
// and type checks, wired to the ThreatDetector/BlockList/EventLogger so every
// rejection is classified and recorded the same way.
type Validator struct {
	cfg       ValidatorConfig
	keys      KeyProvider
	detector  *ThreatDetector
	blocklist *BlockList
	events    *EventLogger
	warnLog   *slog.Logger
}

// NewValidator wires a Validator to its collaborators. warnLog receives
// non-rejecting advisory warnings (short lifetime, short subject); passing
// nil uses slog.Default().
func NewValidator(keys KeyProvider, detector *ThreatDetector, blocklist *BlockList, events *EventLogger, warnLog *slog.Logger, cfg ValidatorConfig) *Validator {
	if warnLog == nil {
		warnLog = slog.Default()
	}
	return &Validator{
		cfg:       cfg.withDefaults(),
		keys:      keys,
		detector:  detector,
		blocklist: blocklist,
		events:    events,
		warnLog:   warnLog,
	}
}

// ValidateToken runs the full algorithm against tokenString and returns the
// normalized Claims, or an *apierror.Error describing the rejection.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string, reqCtx RequestContext) (Claims, error) {
	now := v.cfg.Clock()

	if v.blocklist.IsBlocked(reqCtx.Origin, now) {
		return Claims{}, apierror.NewAPI(apierror.CodeRateLimited, "Too many authentication failures. Try again later.", 429).
			WithDetails(map[string]any{"retry_after_seconds": int(v.detector.BlockDuration().Seconds())})
	}

	if tokenString == "" {
		return Claims{}, v.classify(ctx, now, KindMissingToken, reqCtx, "", "", nil)
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Claims{}, v.classify(ctx, now, KindMalformedToken, reqCtx, "", "", map[string]any{"error": err.Error()})
	}

	alg, _ := unverified.Header["alg"].(string)
	if alg != "RS256" {
		return Claims{}, v.classify(ctx, now, KindInvalidAlgorithm, reqCtx, "", "", map[string]any{"algorithm": alg, "allowed": []string{"RS256"}})
	}
	kid, _ := unverified.Header["kid"].(string)

	keyFunc := func(*jwt.Token) (any, error) {
		return v.keys.PublicKey(ctx, kid)
	}

	parsed, err := jwt.Parse(tokenString, keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(defaultLeeway),
	)
	if err != nil {
		return Claims{}, v.classify(ctx, now, classifyParseError(err), reqCtx, "", "", map[string]any{"error": err.Error()})
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, v.classify(ctx, now, KindMalformedToken, reqCtx, "", "", nil)
	}
	claims := claimsFromMap(mapClaims)

	if missing := missingRequiredClaims(claims); len(missing) > 0 {
		return Claims{}, v.classify(ctx, now, KindMissingClaims, reqCtx, claims.Subject, claims.TokenID, map[string]any{"missing": missing})
	}

	allowedAudiences := append([]string{v.cfg.Audience}, v.cfg.AdditionalAudiences...)
	if !intersects(claims.Audience, allowedAudiences) {
		return Claims{}, v.classify(ctx, now, KindInvalidAudience, reqCtx, claims.Subject, claims.TokenID,
			map[string]any{"audience": claims.Audience, "expected": allowedAudiences})
	}

	if claims.Type != "" && !strings.EqualFold(claims.Type, "bearer") {
		return Claims{}, v.classify(ctx, now, KindInvalidTokenType, reqCtx, claims.Subject, claims.TokenID,
			map[string]any{"type": claims.Type})
	}

	if !claims.IssuedAt.IsZero() && now.Sub(claims.IssuedAt) > v.cfg.MaxTokenAge {
		return Claims{}, v.classify(ctx, now, KindTokenTooOld, reqCtx, claims.Subject, claims.TokenID,
			map[string]any{"issued_at": claims.IssuedAt.UTC().Format(time.RFC3339), "max_age_hours": v.cfg.MaxTokenAge.Hours()})
	}

	if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt); lifetime > 0 && lifetime < v.cfg.MinTokenLifetime {
		v.warnLog.WarnContext(ctx, "jwt token lifetime below recommended minimum",
			slog.String("subject", claims.Subject), slog.Duration("lifetime", lifetime))
	}

	if len(claims.Subject) > 0 && len(claims.Subject) < v.cfg.MinSubjectLength {
		v.warnLog.WarnContext(ctx, "jwt subject shorter than recommended minimum",
			slog.String("subject", claims.Subject))
	}

	return claims, nil
}

// ValidateServiceToken validates tokenString like ValidateToken and
// additionally requires the service-account token type (spec §10,
// supplemented from the original's validate_service_token).
func (v *Validator) ValidateServiceToken(ctx context.Context, tokenString string, reqCtx RequestContext) (Claims, error) {
	claims, err := v.ValidateToken(ctx, tokenString, reqCtx)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != serviceTokenType {
		return Claims{}, v.classify(ctx, v.cfg.Clock(), KindInvalidTokenType, reqCtx, claims.Subject, claims.TokenID,
			map[string]any{"type": claims.Type, "expected": serviceTokenType})
	}
	return claims, nil
}

// classify builds a Security Event for a rejection, runs it through the
// threat detector, logs it, checks whether the origin now crosses the
// block-list threshold, and returns the apierror.Error the caller should
// surface to the client (spec §4.5, §4.6, §4.7).
func (v *Validator) classify(ctx context.Context, now time.Time, kind Kind, reqCtx RequestContext, subject, tokenID string, details map[string]any) *apierror.Error {
	event := NewEvent(now, kind, reqCtx.Origin, reqCtx.UserAgent, reqCtx.RequestID).
		WithSubject(subject).WithTokenID(tokenID).WithDetails(details)
	event = v.detector.Evaluate(event)
	v.events.Log(ctx, event)

	if v.detector.ShouldBlock(reqCtx.Origin, now) && !v.blocklist.IsBlocked(reqCtx.Origin, now) {
		until := v.blocklist.Insert(reqCtx.Origin, now, v.detector.BlockDuration())
		blockEvent := NewEvent(now, KindBruteForceAttempt, reqCtx.Origin, reqCtx.UserAgent, reqCtx.RequestID).
			WithDetails(map[string]any{"reason": "excessive_jwt_errors", "block_until": until.UTC().Format(time.RFC3339)})
		blockEvent.Level = LevelHigh
		v.events.Log(ctx, blockEvent)
	}

	return apierror.NewAPI(string(event.Kind), event.Kind.Message(), event.Kind.Status())
}

// classifyParseError maps a golang-jwt verification error to the closed
// Kind set. Errors golang-jwt does not distinguish fall back to
// MALFORMED_TOKEN.
func classifyParseError(err error) Kind {
	var jerr *jwksError
	if errors.As(err, &jerr) {
		return jerr.kind
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return KindExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return KindTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return KindInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return KindInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return KindInvalidAudience
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return KindMissingClaims
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return KindInvalidIssuedAt
	default:
		return KindMalformedToken
	}
}

func missingRequiredClaims(c Claims) []string {
	var missing []string
	if c.Subject == "" {
		missing = append(missing, "sub")
	}
	if len(c.Audience) == 0 {
		missing = append(missing, "aud")
	}
	if c.Issuer == "" {
		missing = append(missing, "iss")
	}
	if c.IssuedAt.IsZero() {
		missing = append(missing, "iat")
	}
	if c.ExpiresAt.IsZero() {
		missing = append(missing, "exp")
	}
	return missing
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	for _, v := range a {
		if set[v] {
			return true
		}
	}
	return false
}
