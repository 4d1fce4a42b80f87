// Package main is the entry point for the gateway authentication and
// request-security core.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/config"
	"github.com/makrx-community/gateway-security-core/internal/infra/observability"
	"github.com/makrx-community/gateway-security-core/internal/infra/resilience"
	httpx "github.com/makrx-community/gateway-security-core/internal/interface/http"
	"github.com/makrx-community/gateway-security-core/internal/security"
	"github.com/makrx-community/gateway-security-core/internal/shared/redact"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := observability.NewLogger(cfg)
	logger.Info("starting gateway-security-core", "env", cfg.Env, "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		tp, err := observability.InitTracer(ctx, cfg)
		if err != nil {
			logger.Warn("tracer initialization failed, continuing without tracing", "error", err)
		} else {
			tracerShutdown = tp.Shutdown
		}
	}

	registry, httpMetrics := observability.NewMetricsRegistry()
	_ = registry // exposed via the internal router below

	resilienceCfg := resilience.NewResilienceConfig(cfg)
	if err := resilienceCfg.Validate(); err != nil {
		log.Fatalf("Resilience configuration error: %v", err)
	}

	events := security.NewEventLogger(logger).WithRedactor(redact.NewPIIRedactor(redact.RedactorConfig{
		EmailMode: cfg.AuditRedactEmail,
	}))

	keys, err := security.NewJWKSKeyProvider(security.JWKSConfig{
		URL:             cfg.JWKSURL(),
		RefreshInterval: cfg.JWKSRefreshTTL,
		RefreshTimeout:  cfg.TimeoutExternalAPI,
	}, events, logger)
	if err != nil {
		log.Fatalf("JWKS initialization error: %v", err)
	}
	defer keys.Close()

	detector := security.NewThreatDetector(time.Now,
		security.WithBruteForceThreshold(cfg.BruteForceThreshold),
		security.WithBlockDuration(cfg.BlockDuration),
	)
	blocklist := security.NewBlockList()

	validator := security.NewValidator(keys, detector, blocklist, events, logger, security.ValidatorConfig{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})

	refreshBreaker := resilience.NewCircuitBreaker("identity-provider-refresh", resilienceCfg.CircuitBreaker)
	refresh := security.NewTokenRefreshClient(security.RefreshClientConfig{
		KeycloakURL:  cfg.KeycloakURL,
		Realm:        cfg.KeycloakRealm,
		ClientID:     cfg.RefreshClientID,
		ClientSecret: cfg.RefreshClientSecret,
	}, refreshBreaker, logger)

	shutdownCoordinator := resilience.NewShutdownCoordinator(resilienceCfg.Shutdown)

	router := httpx.NewRouter(cfg, logger, httpx.Dependencies{
		Validator: validator,
		Refresh:   refresh,
		BlockList: blocklist,
		Metrics:   httpMetrics,
		Shutdown:  shutdownCoordinator,
	})
	internalRouter := httpx.NewInternalRouter(detector, blocklist)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTPMaxHeaderBytes,
	}

	internalServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.InternalBindAddress, cfg.InternalPort),
		Handler:           internalRouter,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
	}

	go func() {
		logger.Info("public HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("public HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("internal HTTP server starting", "addr", internalServer.Addr)
		if err := internalServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight requests")
	shutdownCoordinator.InitiateShutdown()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer drainCancel()
	if err := shutdownCoordinator.WaitForDrain(drainCtx); err != nil {
		logger.Warn("shutdown drain period exceeded", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("public HTTP server shutdown error", "error", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("internal HTTP server shutdown error", "error", err)
	}
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}

	logger.Info("gateway-security-core stopped")
}
