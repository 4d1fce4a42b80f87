package middleware

import (
	"net/http"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/infra/resilience"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
)

// Shutdown tracks in-flight requests against coordinator (spec.md §5's
// resource model, enriched per the teacher's graceful-shutdown story) and
// rejects new requests with 503 once shutdown has been initiated, instead
// of letting them race the listener close.
func Shutdown(coordinator resilience.ShutdownCoordinator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if coordinator == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !coordinator.IncrementActive() {
				response.WriteError(w, r, apierror.NewAPI(
					apierror.CodeServiceUnavailable,
					"Service is shutting down",
					http.StatusServiceUnavailable,
				), false)
				return
			}
			defer coordinator.DecrementActive()
			next.ServeHTTP(w, r)
		})
	}
}
