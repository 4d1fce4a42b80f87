package middleware

import (
	"net/http"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
	"github.com/makrx-community/gateway-security-core/internal/security"
)

// BlockListCheck rejects requests from an origin currently on blocklist
// before they reach any handler, including ones that never present a
// bearer token (spec §4.6). JWTAuth already runs this same check as its
// first step for token-bearing requests; this middleware covers routes
// that skip JWTAuth entirely, such as the refresh endpoint.
func BlockListCheck(blocklist *security.BlockList, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := security.ResolveOrigin(r)
			now := time.Now()
			if blocklist.IsBlocked(origin, now) {
				response.WriteError(w, r, apierror.NewAPI(
					apierror.CodeRateLimited,
					"Too many authentication failures. Try again later.",
					http.StatusTooManyRequests,
				).WithDetails(map[string]any{"retry_after_seconds": 3600}), production)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
