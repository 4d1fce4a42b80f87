// Package middleware provides HTTP middleware for cross-cutting concerns.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/ctxutil"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
	"github.com/makrx-community/gateway-security-core/internal/security"
)

// RequireRole returns middleware that restricts access to requests whose
// claims (set by JWTAuth) include role.
func RequireRole(logger *slog.Logger, role string) func(http.Handler) http.Handler {
	return RequireAnyRole(logger, role)
}

// RequireAnyRole returns middleware that restricts access to requests whose
// claims include at least one of roles. Rejections use the
// INSUFFICIENT_PRIVILEGES kind (spec §4.4); this does not route through the
// ThreatDetector since role enforcement happens after a token has already
// validated successfully.
func RequireAnyRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return enforceConstraint(logger, "RequireAnyRole", roles, func(claims ctxutil.Claims) bool {
		for _, role := range roles {
			if claims.HasRole(role) {
				return true
			}
		}
		return false
	})
}

// RequirePermission returns middleware that restricts access to requests
// whose claims include perm.
func RequirePermission(logger *slog.Logger, perm string) func(http.Handler) http.Handler {
	return RequireAnyPermission(logger, perm)
}

// RequireAnyPermission returns middleware that restricts access to requests
// whose claims include at least one of perms.
func RequireAnyPermission(logger *slog.Logger, perms ...string) func(http.Handler) http.Handler {
	return enforceConstraint(logger, "RequireAnyPermission", perms, func(claims ctxutil.Claims) bool {
		for _, perm := range perms {
			if claims.HasPermission(perm) {
				return true
			}
		}
		return false
	})
}

func enforceConstraint(logger *slog.Logger, name string, want []string, check func(claims ctxutil.Claims) bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := ctxutil.ClaimsFromContext(r.Context())
			if err != nil {
				response.WriteError(w, r, apierror.NewAPI(apierror.CodeUnauthorized, "Authentication required", http.StatusUnauthorized), false)
				return
			}

			if check(claims) {
				next.ServeHTTP(w, r)
				return
			}

			logger.WarnContext(r.Context(), "access denied",
				slog.String("middleware", name),
				slog.String("user_id", claims.UserID),
				slog.Any("required", want),
				slog.String("path", r.URL.Path),
			)

			response.WriteError(w, r, apierror.NewAPI(
				string(security.KindInsufficientPrivilege),
				security.KindInsufficientPrivilege.Message(),
				security.KindInsufficientPrivilege.Status(),
			), false)
		})
	}
}
