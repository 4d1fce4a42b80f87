package handlers

import (
	"net/http"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
	"github.com/makrx-community/gateway-security-core/internal/security"
)

// StatsResponse is the body of GET /internal/security/stats.
type StatsResponse struct {
	EventsLastHour    int `json:"events_last_hour"`
	UniqueOriginsHour int `json:"unique_origins_last_hour"`
	TrackedPatterns   int `json:"tracked_patterns"`
	BlockedOrigins    int `json:"blocked_origins"`
}

// StatsHandler serves the internal security-statistics endpoint (SPEC_FULL
// §10, supplemented from the original's get_security_stats). It is an
// operator/observability surface, not part of the request-authentication
// path, and is expected to be mounted behind an operator-only route the
// way the teacher mounts its internal /metrics endpoint.
func StatsHandler(detector *security.ThreatDetector, blocklist *security.BlockList) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		stats := detector.Stats(now)
		response.WriteSuccess(w, StatsResponse{
			EventsLastHour:    stats.EventsLastHour,
			UniqueOriginsHour: stats.UniqueOriginsHour,
			TrackedPatterns:   stats.TrackedPatterns,
			BlockedOrigins:    blocklist.Len(),
		})
	}
}
