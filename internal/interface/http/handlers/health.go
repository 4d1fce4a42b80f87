// Package handlers contains HTTP request handlers for the gateway's own
// operational endpoints (liveness, readiness, security statistics).
package handlers

import (
	"context"
	"net/http"

	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
)

// HealthData represents the liveness check data.
type HealthData struct {
	Status string `json:"status"`
}

// HealthHandler always returns 200 if the process is up and serving
// requests; it does not probe collaborators.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, HealthData{Status: "ok"})
}

// DependencyChecker reports whether an external collaborator the gateway
// relies on (the identity provider, most notably) is reachable.
type DependencyChecker interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler reports readiness based on an optional identity-provider
// reachability check. A nil checker means readiness tracks liveness only.
type ReadyzHandler struct {
	identityProvider DependencyChecker
}

// NewReadyzHandler constructs a ReadyzHandler. Pass nil to skip the
// identity-provider reachability check.
func NewReadyzHandler(identityProvider DependencyChecker) *ReadyzHandler {
	return &ReadyzHandler{identityProvider: identityProvider}
}

// ServeHTTP returns 200 when ready, 503 when the identity provider check
// fails.
func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.identityProvider != nil {
		if err := h.identityProvider.Ping(r.Context()); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"detail": "identity provider unreachable",
			})
			return
		}
	}
	response.WriteSuccess(w, HealthData{Status: "ready"})
}
