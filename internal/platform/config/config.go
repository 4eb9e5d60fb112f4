// Package config loads the settings shared by the dashboard and quotectl:
// defaults, then YAML files, then APP_ environment variables, via koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults for values that are also referenced outside defaults().
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	// Quotes requests are attempted once; see RetryConfig.
	DefaultClientRetryMaxAttempts     = 1
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	DefaultRateLimitBurst = 5
	DefaultRateLimitRPS   = 10.0

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	DefaultMaxSessions   = 10000
	DefaultQuotesBaseURL = "http://localhost:5000"
)

// Config is the root of the settings tree.
type Config struct {
	App         AppConfig         `koanf:"app"`
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Client      ClientConfig      `koanf:"client"`
	Services    ServicesConfig    `koanf:"services"`
	View        ViewConfig        `koanf:"view"`
	Credentials CredentialsConfig `koanf:"credentials"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig is the dashboard listener.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig selects the console log level and format.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig adds a rotated JSON log file. Level defaults to LogConfig.Level.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	Level      string `koanf:"level"       validate:"omitempty,oneof=trace debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig enables OTLP trace and metric export.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ClientConfig tunes the Quotes Service client.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	Transport      TransportConfig      `koanf:"transport"`
	RateLimit      RateLimitConfig      `koanf:"rate_limit"`
}

// RetryConfig applies to list requests only; a create is never repeated.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig stops calling a failing Quotes Service for Timeout.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig sizes the connection pool.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// RateLimitConfig throttles outgoing requests with a token bucket.
type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"required_if=Enabled true,omitempty,gt=0"`
	Burst             int     `koanf:"burst"               validate:"required_if=Enabled true,omitempty,min=1"`
}

// ServicesConfig lists remote dependencies.
type ServicesConfig struct {
	Quotes ServiceEndpointConfig `koanf:"quotes"`
}

// ServiceEndpointConfig locates one remote service.
type ServiceEndpointConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Name    string `koanf:"name"     validate:"required"`
}

// ViewConfig holds the quote list policies and dashboard session limits.
type ViewConfig struct {
	// TrustLocalEcho appends the locally typed text after a successful create
	// instead of reconciling with the server's representation.
	TrustLocalEcho bool `koanf:"trust_local_echo"`

	// SilentFetchFailure keeps list failures out of the rendered state.
	SilentFetchFailure bool `koanf:"silent_fetch_failure"`

	// SilentSubmitFailure keeps create failures out of the rendered state.
	SilentSubmitFailure bool `koanf:"silent_submit_failure"`

	// SessionTTL is how long an idle dashboard session keeps its view.
	SessionTTL time.Duration `koanf:"session_ttl" validate:"required,min=1s"`

	// MaxSessions caps concurrently live dashboard sessions.
	MaxSessions int `koanf:"max_sessions" validate:"required,min=1"`
}

// CredentialsConfig tells the hosts where to find the bearer token.
type CredentialsConfig struct {
	// File is a TOML credentials file read by the CLI.
	File string `koanf:"file"`

	// CookieName is the browser cookie holding the token on the dashboard.
	CookieName string `koanf:"cookie_name" validate:"required"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quote-saver",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quote-saver.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.insecure":      true,
		"telemetry.service_name":  "quote-saver",
		"telemetry.sampling_rate": 1.0,

		"client.timeout":                           "10s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",
		"client.rate_limit.enabled":                false,
		"client.rate_limit.requests_per_second":    DefaultRateLimitRPS,
		"client.rate_limit.burst":                  DefaultRateLimitBurst,

		"services.quotes.base_url": DefaultQuotesBaseURL,
		"services.quotes.name":     "quotes-service",

		"view.trust_local_echo":      true,
		"view.silent_fetch_failure":  true,
		"view.silent_submit_failure": true,
		"view.session_ttl":           "30m",
		"view.max_sessions":          DefaultMaxSessions,

		"credentials.file":        "",
		"credentials.cookie_name": "token",
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Explicit files, in the order given (e.g. a --config flag)
//  3. Profile config file (configs/{profile}.yaml)
//  4. Base config file (configs/base.yaml)
//  5. Default values
func Load(profile string, files ...string) (*Config, error) {
	k := koanf.New(".")

	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	err = loadFileIfExists(k, "configs/base.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		err := loadFileIfExists(k, profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	for _, path := range files {
		if path == "" {
			continue
		}

		// Explicitly requested files must exist.
		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return nil, fmt.Errorf("loading config file %q: %w", path, err)
		}
	}

	err = k.Load(env.Provider("APP_", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKey maps APP_SERVICES_QUOTES_BASE__URL to services.quotes.base_url.
// A double underscore keeps a literal underscore inside a key segment.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "APP_"))
	s = strings.ReplaceAll(s, "__", "\x00")
	s = strings.ReplaceAll(s, "_", ".")

	return strings.ReplaceAll(s, "\x00", "_")
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
