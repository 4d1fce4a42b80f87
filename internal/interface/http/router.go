// Package http provides HTTP server and routing functionality.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/makrx-community/gateway-security-core/internal/config"
	"github.com/makrx-community/gateway-security-core/internal/infra/resilience"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/handlers"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/middleware"
	"github.com/makrx-community/gateway-security-core/internal/runtimeutil"
	"github.com/makrx-community/gateway-security-core/internal/security"
	"github.com/makrx-community/gateway-security-core/internal/shared/metrics"
)

// Dependencies bundles the collaborators NewRouter wires into the public
// HTTP surface. Everything here is constructed by cmd/gatewaysec, not by
// the router itself, so the router stays unit-testable against fakes.
type Dependencies struct {
	Validator     *security.Validator
	Refresh       *security.TokenRefreshClient
	BlockList     *security.BlockList
	Metrics       metrics.HTTPMetrics
	Shutdown      resilience.ShutdownCoordinator
	ReadyzChecker handlers.DependencyChecker
}

// NewRouter assembles the public chi router: the Request Envelope, request
// ID, tracing, logging, metrics, and security-header middleware run on
// every route; the auth endpoints additionally run the Block-List check
// (spec §4.6) since they are reachable without a bearer token (spec §2's
// control-flow diagram, §4.9).
//
// A general-purpose request-rate throttle (cfg.RateLimitRPS) runs ahead of
// everything else to bound raw traffic volume — a concern distinct from the
// Block-List, which throttles by authentication-failure pattern rather than
// by request rate (SPEC_FULL §12; go-chi/httprate itself stays unwired
// since this in-house limiter already owns the concern, see DESIGN.md).
func NewRouter(cfg *config.Config, logger *slog.Logger, deps Dependencies) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	production := cfg.IsProduction()

	r := chi.NewRouter()

	r.Use(middleware.Envelope(logger, production))
	r.Use(middleware.Shutdown(deps.Shutdown))
	r.Use(middleware.RequestID)
	r.Use(middleware.Otel(cfg.ServiceName))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.SecurityHeaders)

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewInMemoryRateLimiter(
			middleware.WithDefaultRate(runtimeutil.NewRate(cfg.RateLimitRPS, time.Second)),
		)
		r.Use(middleware.RateLimitMiddleware(limiter))
	}

	r.Get("/healthz", handlers.HealthHandler)
	r.Method(http.MethodGet, "/readyz", handlers.NewReadyzHandler(deps.ReadyzChecker))

	r.Route("/api/v1/auth", func(ar chi.Router) {
		ar.Use(middleware.BlockListCheck(deps.BlockList, production))
		auth := handlers.NewAuthHandlers(deps.Refresh)
		ar.Post("/refresh", auth.Refresh)
		ar.Post("/logout", auth.Logout)

		ar.Group(func(pr chi.Router) {
			pr.Use(middleware.JWTAuth(deps.Validator, production))
			pr.Get("/me", auth.Me)
		})
	})

	return r
}

// NewInternalRouter assembles the operator-only router serving security
// statistics (SPEC_FULL §10.1). It is meant to be bound to
// cfg.InternalBindAddress:cfg.InternalPort, a loopback/private address by
// default, rather than exposed alongside the public API (mirrors the
// teacher's internal-only /metrics router).
func NewInternalRouter(detector *security.ThreatDetector, blocklist *security.BlockList) chi.Router {
	r := chi.NewRouter()
	r.Get("/internal/security/stats", handlers.StatsHandler(detector, blocklist))
	return r
}
