package security

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the normalized, typed view of a validated JWT payload (spec
// §3). Claims the gateway does not recognize by name are kept in
// Additional rather than dropped, so callers built against a newer realm
// configuration still see everything the token carried.
type Claims struct {
	Subject           string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	NotBefore         time.Time
	Issuer            string
	Audience          []string
	TokenID           string // jti
	Type              string // typ
	PreferredUsername string
	Email             string
	EmailVerified     bool
	GivenName         string
	FamilyName        string
	Roles             []string // realm_access.roles
	Groups            []string
	MakerspaceID      string
	ProviderID        string
	Additional        map[string]any
}

// UserInfo is the normalized user record returned by ExtractUserInfo.
type UserInfo struct {
	ID            string
	KeycloakID    string
	Email         string
	Username      string
	FirstName     string
	LastName      string
	Roles         []string
	Groups        []string
	EmailVerified bool
	MakerspaceID  string
	ProviderID    string
}

// adminRoles is the set of roles that grant administrator status (spec
// §4.3's is_admin).
var adminRoles = []string{"super-admin", "makerspace-admin", "admin"}

// claimsFromMap builds a Claims from a raw jwt.MapClaims, tracking which
// keys it consumed so the remainder becomes the Additional bag.
func claimsFromMap(m jwt.MapClaims) Claims {
	consumed := make(map[string]bool)
	take := func(key string) (any, bool) {
		v, ok := m[key]
		if ok {
			consumed[key] = true
		}
		return v, ok
	}

	c := Claims{}
	if v, ok := take("sub"); ok {
		c.Subject, _ = v.(string)
	}
	if v, ok := take("iss"); ok {
		c.Issuer, _ = v.(string)
	}
	if v, ok := take("aud"); ok {
		c.Audience = toStringSlice(v)
	}
	if v, ok := take("jti"); ok {
		c.TokenID, _ = v.(string)
	}
	if v, ok := take("typ"); ok {
		c.Type, _ = v.(string)
	}
	if v, ok := take("iat"); ok {
		c.IssuedAt = toTime(v)
	}
	if v, ok := take("exp"); ok {
		c.ExpiresAt = toTime(v)
	}
	if v, ok := take("nbf"); ok {
		c.NotBefore = toTime(v)
	}
	if v, ok := take("preferred_username"); ok {
		c.PreferredUsername, _ = v.(string)
	}
	if v, ok := take("email"); ok {
		c.Email, _ = v.(string)
	}
	if v, ok := take("email_verified"); ok {
		c.EmailVerified, _ = v.(bool)
	}
	if v, ok := take("given_name"); ok {
		c.GivenName, _ = v.(string)
	}
	if v, ok := take("family_name"); ok {
		c.FamilyName, _ = v.(string)
	}
	if v, ok := take("groups"); ok {
		c.Groups = toStringSlice(v)
	}
	if v, ok := take("makerspace_id"); ok {
		c.MakerspaceID, _ = v.(string)
	}
	if v, ok := take("provider_id"); ok {
		c.ProviderID, _ = v.(string)
	}
	if v, ok := take("realm_access"); ok {
		if ra, ok := v.(map[string]any); ok {
			if roles, ok := ra["roles"]; ok {
				c.Roles = toStringSlice(roles)
			}
		}
	}

	additional := make(map[string]any)
	for k, v := range m {
		if !consumed[k] {
			additional[k] = v
		}
	}
	if len(additional) > 0 {
		c.Additional = additional
	}
	return c
}

// ExtractUserInfo normalizes claims into a UserInfo record (spec §4.3).
func ExtractUserInfo(c Claims) UserInfo {
	return UserInfo{
		ID:            c.Subject,
		KeycloakID:    c.Subject,
		Email:         c.Email,
		Username:      c.PreferredUsername,
		FirstName:     c.GivenName,
		LastName:      c.FamilyName,
		Roles:         c.Roles,
		Groups:        c.Groups,
		EmailVerified: c.EmailVerified,
		MakerspaceID:  c.MakerspaceID,
		ProviderID:    c.ProviderID,
	}
}

// HasRole reports whether claims include role in realm_access.roles.
func HasRole(c Claims, role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether claims include any of roles.
func HasAnyRole(c Claims, roles []string) bool {
	for _, r := range roles {
		if HasRole(c, r) {
			return true
		}
	}
	return false
}

// IsAdmin reports membership in any of the admin roles.
func IsAdmin(c Claims) bool {
	return HasAnyRole(c, adminRoles)
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case string:
		return []string{vv}
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toTime(v any) time.Time {
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0).UTC()
	case int64:
		return time.Unix(vv, 0).UTC()
	case json.Number:
		if f, err := vv.Float64(); err == nil {
			return time.Unix(int64(f), 0).UTC()
		}
	}
	return time.Time{}
}
