package security

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestClaimsFromMap_ExtractsKnownFieldsAndAdditional(t *testing.T) {
	m := jwt.MapClaims{
		"sub":                "user-1",
		"iss":                "https://issuer.example",
		"aud":                "gateway",
		"jti":                "token-1",
		"iat":                float64(1700000000),
		"exp":                float64(1700003600),
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
		"realm_access":       map[string]any{"roles": []any{"admin", "member"}},
		"custom_claim":       "kept",
	}

	c := claimsFromMap(m)

	if c.Subject != "user-1" || c.Issuer != "https://issuer.example" || c.TokenID != "token-1" {
		t.Fatalf("unexpected core claims: %+v", c)
	}
	if len(c.Audience) != 1 || c.Audience[0] != "gateway" {
		t.Fatalf("Audience = %v, want [gateway]", c.Audience)
	}
	if c.PreferredUsername != "jdoe" || c.Email != "jdoe@example.com" {
		t.Fatalf("unexpected profile claims: %+v", c)
	}
	if len(c.Roles) != 2 || c.Roles[0] != "admin" {
		t.Fatalf("Roles = %v, want [admin member]", c.Roles)
	}
	if c.Additional == nil || c.Additional["custom_claim"] != "kept" {
		t.Fatalf("expected unrecognized claim preserved in Additional, got %+v", c.Additional)
	}
	if _, leaked := c.Additional["sub"]; leaked {
		t.Fatal("expected consumed claim not duplicated into Additional")
	}
}

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		roles []string
		want  bool
	}{
		{[]string{"member"}, false},
		{[]string{"admin"}, true},
		{[]string{"makerspace-admin"}, true},
		{nil, false},
	}
	for _, tc := range cases {
		c := Claims{Roles: tc.roles}
		if got := IsAdmin(c); got != tc.want {
			t.Errorf("IsAdmin(%v) = %v, want %v", tc.roles, got, tc.want)
		}
	}
}

func TestHasAnyRole(t *testing.T) {
	c := Claims{Roles: []string{"member", "editor"}}
	if !HasAnyRole(c, []string{"viewer", "editor"}) {
		t.Fatal("expected HasAnyRole true for overlapping role")
	}
	if HasAnyRole(c, []string{"viewer"}) {
		t.Fatal("expected HasAnyRole false for disjoint roles")
	}
}

func TestExtractUserInfo(t *testing.T) {
	c := Claims{
		Subject:           "user-1",
		Email:             "jdoe@example.com",
		PreferredUsername: "jdoe",
		GivenName:         "Jane",
		FamilyName:        "Doe",
		Roles:             []string{"admin"},
	}
	info := ExtractUserInfo(c)
	if info.ID != "user-1" || info.KeycloakID != "user-1" || info.Username != "jdoe" {
		t.Fatalf("unexpected UserInfo: %+v", info)
	}
	if info.FirstName != "Jane" || info.LastName != "Doe" {
		t.Fatalf("unexpected name fields: %+v", info)
	}
}
