package security

import "net/http"

// Kind is the closed set of JWT/auth security event kinds. Values are
// string-stable: they appear verbatim in logs and in the `code` field of
// error responses.
type Kind string

const (
	KindMalformedToken        Kind = "MALFORMED_TOKEN"
	KindInvalidHeader         Kind = "INVALID_HEADER"
	KindMissingClaims         Kind = "MISSING_CLAIMS"
	KindExpiredToken          Kind = "EXPIRED_TOKEN"
	KindInvalidSignature      Kind = "INVALID_SIGNATURE"
	KindInvalidIssuer         Kind = "INVALID_ISSUER"
	KindInvalidAudience       Kind = "INVALID_AUDIENCE"
	KindInvalidAlgorithm      Kind = "INVALID_ALGORITHM"
	KindTokenNotYetValid      Kind = "TOKEN_NOT_YET_VALID"
	KindTokenTooOld           Kind = "TOKEN_TOO_OLD"
	KindInvalidIssuedAt       Kind = "INVALID_ISSUED_AT"
	KindMissingToken          Kind = "MISSING_TOKEN"
	KindInvalidTokenType      Kind = "INVALID_TOKEN_TYPE"
	KindRevokedToken          Kind = "REVOKED_TOKEN"
	KindInsufficientPrivilege Kind = "INSUFFICIENT_PRIVILEGES"
	KindScopeMismatch         Kind = "SCOPE_MISMATCH"
	KindTenantMismatch        Kind = "TENANT_MISMATCH"
	KindJWKSFetchError        Kind = "JWKS_FETCH_ERROR"
	KindKeyNotFound           Kind = "KEY_NOT_FOUND"
	KindNetworkError          Kind = "NETWORK_ERROR"
	KindReplayAttack          Kind = "REPLAY_ATTACK"
	KindBruteForceAttempt     Kind = "BRUTE_FORCE_ATTEMPT"
	KindSuspiciousPattern     Kind = "SUSPICIOUS_PATTERN"
)

// bruteForceEligible is the set of kinds the threat detector counts toward
// the brute-force threshold (spec §4.5).
var bruteForceEligible = map[Kind]bool{
	KindExpiredToken:     true,
	KindInvalidSignature: true,
}

// IsBruteForceEligible reports whether repeated occurrences of kind from the
// same origin count toward brute-force detection.
func IsBruteForceEligible(k Kind) bool {
	return bruteForceEligible[k]
}

// Status returns the HTTP status for a given event kind.
func (k Kind) Status() int {
	switch k {
	case KindJWKSFetchError, KindNetworkError:
		return http.StatusServiceUnavailable
	case KindInsufficientPrivilege, KindScopeMismatch, KindTenantMismatch:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// Message returns the generic, user-facing message for a given event kind.
// Internal classification stays in the Kind/code field and in logs only.
func (k Kind) Message() string {
	switch k {
	case KindMissingToken:
		return "Authentication required"
	case KindExpiredToken:
		return "Authentication token has expired"
	case KindTokenNotYetValid:
		return "Authentication token not yet valid"
	case KindInvalidTokenType:
		return "Invalid authentication token type"
	case KindRevokedToken:
		return "Authentication token has been revoked"
	case KindInsufficientPrivilege:
		return "Insufficient privileges"
	case KindScopeMismatch, KindTenantMismatch:
		return "Access denied"
	case KindJWKSFetchError, KindNetworkError:
		return "Authentication service unavailable"
	default:
		return "Invalid authentication token"
	}
}

// ThreatLevel is an ordered severity tag assigned to each security event.
type ThreatLevel int

const (
	LevelLow ThreatLevel = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// String renders the level the way it appears in logs and Security Events.
func (l ThreatLevel) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "LOW"
	}
}

// escalate returns the higher of the two levels; escalation never lowers.
func escalate(a, b ThreatLevel) ThreatLevel {
	if b > a {
		return b
	}
	return a
}
