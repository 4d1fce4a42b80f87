// Package middleware contains HTTP middleware for the API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/makrx-community/gateway-security-core/internal/ctxutil"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
	"github.com/makrx-community/gateway-security-core/internal/security"
)

// securityClaimsKeyType stores the full validated security.Claims alongside
// the trimmed ctxutil.Claims projection RequireAnyRole/RequireAnyPermission
// already understand.
type securityClaimsKeyType struct{}

var securityClaimsKey = securityClaimsKeyType{}

// SecurityClaimsFromContext returns the full validated JWT claims stored by
// JWTAuth, if any.
func SecurityClaimsFromContext(ctx context.Context) (security.Claims, bool) {
	c, ok := ctx.Value(securityClaimsKey).(security.Claims)
	return c, ok
}

// JWTAuth builds middleware that authenticates every request with
// validator, the spec's bearer-token pipeline (spec §4.1, §4.3). On success
// it stores both the full security.Claims and a ctxutil.Claims projection
// (for RequireAnyRole/RequireAnyPermission) in the request context. On
// failure it writes the unified error response via response.WriteError,
// which already carries the correct status, code, and WWW-Authenticate
// header for the rejecting security.Kind.
func JWTAuth(validator *security.Validator, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			reqCtx := security.RequestContext{
				Origin:    security.ResolveOrigin(r),
				UserAgent: r.Header.Get("User-Agent"),
				RequestID: ctxutil.RequestIDFromContext(r.Context()),
			}

			claims, err := validator.ValidateToken(r.Context(), token, reqCtx)
			if err != nil {
				response.WriteError(w, r, err, production)
				return
			}

			info := security.ExtractUserInfo(claims)
			ctx := context.WithValue(r.Context(), securityClaimsKey, claims)
			ctx = ctxutil.NewClaimsContext(ctx, ctxutil.Claims{
				UserID: info.ID,
				Roles:  info.Roles,
				Metadata: map[string]string{
					"email":         info.Email,
					"username":      info.Username,
					"makerspace_id": info.MakerspaceID,
				},
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
