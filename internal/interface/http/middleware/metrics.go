package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/interface/http/httpx"
	"github.com/makrx-community/gateway-security-core/internal/shared/metrics"
)

// Metrics middleware records HTTP request metrics (count, duration) against
// the injected recorder. It captures method, path, status for the request
// counter and method, path for the duration histogram.
func Metrics(recorder metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			rw := httpx.NewResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			method := r.Method
			route := r.URL.Path
			status := strconv.Itoa(rw.StatusCode())

			recorder.IncRequest(method, route, status)
			recorder.ObserveRequestDuration(method, route, duration)
		})
	}
}
