package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/ctxutil"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
)

// Envelope wraps the downstream pipeline so every response carries
// X-Request-ID and X-Response-Time headers and every panic is converted
// into the unified error response instead of reaching the client as a
// raw 500 or a dropped connection (spec §4.1). It assumes RequestID has
// already run so a request ID is present in context; Envelope does not
// generate one itself.
func Envelope(logger *slog.Logger, production bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ew := &envelopeWriter{ResponseWriter: w, start: start}

			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.String("request_id", ctxutil.RequestIDFromContext(r.Context())),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
					if !ew.wroteHeader {
						response.WriteError(ew, r, fmt.Errorf("panic: %v", rec), production)
					}
				}
			}()

			next.ServeHTTP(ew, r)
		})
	}
}

// envelopeWriter stamps X-Response-Time on the first WriteHeader/Write call,
// the last point at which response headers can still be mutated, and
// tracks whether headers were already sent so the panic handler never
// attempts a second WriteHeader call.
type envelopeWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
	statusCode  int
}

func (ew *envelopeWriter) WriteHeader(code int) {
	if ew.wroteHeader {
		return
	}
	ew.wroteHeader = true
	ew.statusCode = code
	elapsedMS := float64(time.Since(ew.start)) / float64(time.Millisecond)
	ew.Header().Set("X-Response-Time", fmt.Sprintf("%.2fms", elapsedMS))
	ew.ResponseWriter.WriteHeader(code)
}

func (ew *envelopeWriter) Write(b []byte) (int, error) {
	if !ew.wroteHeader {
		ew.WriteHeader(http.StatusOK)
	}
	return ew.ResponseWriter.Write(b)
}
