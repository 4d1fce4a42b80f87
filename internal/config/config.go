// Package config provides environment-based configuration loading for the
// gateway's authentication and request-security core.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration values for the gateway. Required fields
// cause startup failure if not provided; optional fields have defaults
// appropriate for local development.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Env         string `envconfig:"ENV" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"gateway-security-core"`

	// OpenTelemetry
	OTELEnabled          bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELExporterEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	// HTTP request handling
	MaxRequestSize int64 `envconfig:"MAX_REQUEST_SIZE" default:"1048576"`

	// JWT / Keycloak identity provider (spec §4.2, §4.8)
	// KeycloakURL + Realm derive the JWKS, token, and revoke endpoints.
	KeycloakURL    string        `envconfig:"KEYCLOAK_URL" required:"true"`
	KeycloakRealm  string        `envconfig:"KEYCLOAK_REALM" required:"true"`
	JWTIssuer      string        `envconfig:"JWT_ISSUER" required:"true"`
	JWTAudience    string        `envconfig:"JWT_AUDIENCE" required:"true"`
	JWTClockSkew   time.Duration `envconfig:"JWT_CLOCK_SKEW" default:"30s"`
	JWKSRefreshTTL time.Duration `envconfig:"JWKS_REFRESH_TTL" default:"1h"`

	// Refresh client credentials (confidential client, spec §4.8)
	RefreshClientID     string `envconfig:"REFRESH_CLIENT_ID" required:"true"`
	RefreshClientSecret string `envconfig:"REFRESH_CLIENT_SECRET" required:"true"`

	// Threat detection / block-list (spec §4.5, §4.6)
	BruteForceThreshold int           `envconfig:"BRUTE_FORCE_THRESHOLD" default:"10"`
	BlockDuration       time.Duration `envconfig:"BLOCK_DURATION" default:"1h"`

	// Rate Limiting
	RateLimitRPS int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	TrustProxy   bool `envconfig:"TRUST_PROXY" default:"false"`

	// Internal server (security stats / metrics, spec §10)
	InternalPort        int    `envconfig:"INTERNAL_PORT" default:"8081"`
	InternalBindAddress string `envconfig:"INTERNAL_BIND_ADDRESS" default:"127.0.0.1"`

	// Audit / PII redaction for security event logging (spec §4.7)
	AuditRedactEmail string `envconfig:"AUDIT_REDACT_EMAIL" default:"full"`

	// Server Timeouts
	HTTPReadTimeout       time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout      time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPIdleTimeout       time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	HTTPReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	HTTPMaxHeaderBytes    int           `envconfig:"HTTP_MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout       time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Resilience - Circuit Breaker (wraps the identity-provider refresh call)
	CBMaxRequests      int           `envconfig:"CB_MAX_REQUESTS" default:"3"`
	CBInterval         time.Duration `envconfig:"CB_INTERVAL" default:"10s"`
	CBTimeout          time.Duration `envconfig:"CB_TIMEOUT" default:"30s"`
	CBFailureThreshold int           `envconfig:"CB_FAILURE_THRESHOLD" default:"5"`

	// Resilience - Retry (identity-provider HTTP calls)
	RetryMaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"1s"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
	RetryMultiplier   float64       `envconfig:"RETRY_MULTIPLIER" default:"2.0"`

	// Resilience - Timeout. TimeoutDatabase keeps the resilience package's
	// generic "database" preset name even though this core has no database;
	// it is reused for the tightest-bound external call (JWKS fetch).
	TimeoutDefault     time.Duration `envconfig:"TIMEOUT_DEFAULT" default:"30s"`
	TimeoutDatabase    time.Duration `envconfig:"TIMEOUT_DATABASE" default:"5s"`
	TimeoutExternalAPI time.Duration `envconfig:"TIMEOUT_EXTERNAL_API" default:"10s"`

	// Resilience - Bulkhead (bounds concurrent identity-provider calls)
	BulkheadMaxConcurrent int `envconfig:"BULKHEAD_MAX_CONCURRENT" default:"10"`
	BulkheadMaxWaiting    int `envconfig:"BULKHEAD_MAX_WAITING" default:"100"`

	// Resilience - Graceful Shutdown
	ShutdownDrainPeriod time.Duration `envconfig:"SHUTDOWN_DRAIN_PERIOD" default:"30s"`
	ShutdownGracePeriod time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"5s"`
}

// JWKSURL derives the realm's JWKS endpoint from KeycloakURL/KeycloakRealm.
func (c *Config) JWKSURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", strings.TrimRight(c.KeycloakURL, "/"), c.KeycloakRealm)
}

// Redacted returns a safe string representation of the Config for logging.
func (c *Config) Redacted() string {
	safe := *c
	safe.RefreshClientSecret = "[REDACTED]"
	return fmt.Sprintf("%+v", safe)
}

// Load reads configuration from environment variables. It returns an error
// if required fields are missing or fail validation.
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate checks configuration for required fields and valid ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.KeycloakURL) == "" {
		return fmt.Errorf("KEYCLOAK_URL is required and cannot be empty")
	}
	if strings.TrimSpace(c.KeycloakRealm) == "" {
		return fmt.Errorf("KEYCLOAK_REALM is required and cannot be empty")
	}
	if strings.TrimSpace(c.JWTIssuer) == "" {
		return fmt.Errorf("JWT_ISSUER is required and cannot be empty")
	}
	if strings.TrimSpace(c.JWTAudience) == "" {
		return fmt.Errorf("JWT_AUDIENCE is required and cannot be empty")
	}

	if c.OTELEnabled && strings.TrimSpace(c.OTELExporterEndpoint) == "" {
		return fmt.Errorf("OTEL_ENABLED is true but OTEL_EXPORTER_OTLP_ENDPOINT is empty")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: must be between 0 and 65535")
	}
	if c.InternalPort < 0 || c.InternalPort > 65535 {
		return fmt.Errorf("invalid INTERNAL_PORT: must be between 0 and 65535")
	}
	if c.InternalPort != 0 && c.InternalPort == c.Port {
		return fmt.Errorf("INTERNAL_PORT must differ from PORT")
	}
	if c.InternalBindAddress == "" {
		return fmt.Errorf("INTERNAL_BIND_ADDRESS cannot be empty")
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("invalid SERVICE_NAME: must not be empty")
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.AuditRedactEmail = strings.ToLower(strings.TrimSpace(c.AuditRedactEmail))

	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("invalid ENV: must be one of development, staging, production, test")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: must be one of debug, info, warn, error")
	}

	switch c.AuditRedactEmail {
	case "full", "partial":
	default:
		return fmt.Errorf("invalid AUDIT_REDACT_EMAIL: must be 'full' or 'partial'")
	}

	if c.MaxRequestSize < 1 {
		return fmt.Errorf("invalid MAX_REQUEST_SIZE: must be greater than 0")
	}
	if c.RateLimitRPS < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: must be greater than 0")
	}
	if c.BruteForceThreshold < 1 {
		return fmt.Errorf("invalid BRUTE_FORCE_THRESHOLD: must be greater than 0")
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("invalid BLOCK_DURATION: must be greater than 0")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: must be greater than 0")
	}
	if c.ShutdownDrainPeriod <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_DRAIN_PERIOD: must be greater than 0")
	}
	if c.ShutdownGracePeriod < 0 {
		return fmt.Errorf("invalid SHUTDOWN_GRACE_PERIOD: must be non-negative")
	}

	return validateKeycloakURL(c.KeycloakURL)
}

func validateKeycloakURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid KEYCLOAK_URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid KEYCLOAK_URL: must be an absolute URL (scheme + host)")
	}
	return nil
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
