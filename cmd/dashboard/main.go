// Package main is the entry point for the quotes dashboard server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-saver/internal/adapters/credentials"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
	"github.com/jsamuelsen/quote-saver/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-saver/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the dashboard.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting dashboard",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("quotes_service", cfg.Services.Quotes.BaseURL),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	viewMetrics, err := telemetry.NewViewMetrics()
	if err != nil {
		return fmt.Errorf("creating view metrics: %w", err)
	}

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Create HTTP client for the Quotes Service
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Quotes.BaseURL,
		ServiceName: cfg.Services.Quotes.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		RateLimit:   cfg.Client.RateLimit,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	// 7. Create quotes client adapter (ACL pattern)
	quotesClient := acl.NewQuotesClient(acl.QuotesClientConfig{
		Client: httpClient,
		Logger: logger,
	})

	if err := healthRegistry.Register(quotesClient); err != nil {
		return fmt.Errorf("registering quotes client health check: %w", err)
	}

	// 8. One view per browser session
	sessions := newSessionStore(cfg, quotesClient, viewMetrics, logger)

	if err := healthRegistry.Register(sessions); err != nil {
		return fmt.Errorf("registering session health check: %w", err)
	}

	go sessions.Run(ctx)

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	dashboardHandler := handlers.NewDashboardHandler(handlers.DashboardConfig{
		Sessions:     sessions,
		SecureCookie: cfg.App.Environment == "prod",
		Logger:       logger,
	})

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 11. Setup router with all middleware and routes
	routerCfg := http.NewDefaultRouterConfig(logger, &cfg.App, healthHandler, dashboardHandler)
	routerCfg.CredentialCookie = cfg.Credentials.CookieName
	http.SetupRouter(server.Engine(), routerCfg)

	// 12. Close every session view once shutdown begins
	server.OnShutdown(sessions.Close)

	// 13. Serve until SIGINT/SIGTERM, then drain
	if err := server.Run(ctx); err != nil {
		sessions.Close()
		return fmt.Errorf("dashboard server: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}

// newSessionStore gives every browser session its own view. The token is the
// one the request carries, read once per request. The credentials file is a
// CLI concern and is never consulted here: a request without a token must not
// act as the file's owner.
func newSessionStore(
	cfg *config.Config,
	quotes ports.QuotesService,
	metrics *telemetry.ViewMetrics,
	logger *slog.Logger,
) *handlers.SessionStore {
	policy := app.ViewPolicy{
		TrustLocalEcho:      cfg.View.TrustLocalEcho,
		SilentFetchFailure:  cfg.View.SilentFetchFailure,
		SilentSubmitFailure: cfg.View.SilentSubmitFailure,
	}

	tokens := credentials.RequestScoped{Provider: credentials.ContextProvider{}}
	executor := app.NewExecutor(logger)

	return handlers.NewSessionStore(handlers.SessionStoreConfig{
		NewView: func() *app.QuoteListView {
			return app.NewQuoteListView(app.QuoteListViewConfig{
				Quotes:      quotes,
				Credentials: tokens,
				Policy:      policy,
				Metrics:     metrics,
				Executor:    executor,
				Logger:      logger,
			})
		},
		TTL:         cfg.View.SessionTTL,
		MaxSessions: cfg.View.MaxSessions,
		Logger:      logger,
	})
}
