package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-saver/internal/adapters/credentials"
	"github.com/jsamuelsen/quote-saver/internal/adapters/tui"
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
	"github.com/jsamuelsen/quote-saver/internal/ports"
)

// errReported ends a command whose failure was already written to stderr.
var errReported = errors.New("request failed")

// errNoText is returned by add without an argument.
var errNoText = errors.New("add: quote text is required")

// TUIFunc runs the interactive view until the user quits.
type TUIFunc func(ctx context.Context, view *app.QuoteListView) error

// Runner holds the dependencies of every command and provides one method per
// command action.
type Runner struct {
	quotes ports.QuotesService
	creds  ports.CredentialProvider
	policy app.ViewPolicy
	logCfg logging.Config
	logger *slog.Logger
	output io.Writer
	errOut io.Writer
	runTUI TUIFunc
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Quotes replaces the HTTP client, mainly for tests.
	Quotes ports.QuotesService

	Output io.Writer
	ErrOut io.Writer
	Logger *slog.Logger
	RunTUI TUIFunc
}

// NewRunner creates a Runner. Dependencies left nil are built by Setup.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	if opts.RunTUI == nil {
		opts.RunTUI = func(ctx context.Context, view *app.QuoteListView) error {
			return tui.Run(ctx, view)
		}
	}

	return &Runner{
		quotes: opts.Quotes,
		logger: opts.Logger,
		output: opts.Output,
		errOut: opts.ErrOut,
		runTUI: opts.RunTUI,
	}
}

// Setup loads the configuration and resolves the global flags. It runs
// before every command.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(os.Getenv("APP_ENVIRONMENT"), cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	if baseURL := cmd.String("base-url"); baseURL != "" {
		cfg.Services.Quotes.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("invalid config: %w", err)
	}

	r.logCfg = logging.Config{
		Level:   "warn",
		Format:  "pretty",
		Service: "quotectl",
		Version: Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}

	if cmd.Bool("verbose") {
		r.logCfg.Level = "debug"
	}

	if r.logger == nil {
		r.logger = logging.NewWithWriter(&r.logCfg, r.errOut)
	}

	showErrors := cmd.Bool("show-errors")
	r.policy = app.ViewPolicy{
		TrustLocalEcho:      cfg.View.TrustLocalEcho,
		SilentFetchFailure:  cfg.View.SilentFetchFailure && !showErrors,
		SilentSubmitFailure: cfg.View.SilentSubmitFailure && !showErrors,
	}

	credsPath := cmd.String("credentials")
	if credsPath == "" {
		credsPath = cfg.Credentials.File
	}

	if credsPath == "" {
		credsPath = credentials.DefaultFilePath()
	}

	r.creds = credentials.Chain{
		credentials.Static(cmd.String("token")),
		credentials.Env(EnvToken),
		credentials.NewFileStore(credsPath),
	}

	if r.quotes != nil {
		return ctx, nil
	}

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Quotes.BaseURL,
		ServiceName: cfg.Services.Quotes.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		RateLimit:   cfg.Client.RateLimit,
		Logger:      r.logger,
	})
	if err != nil {
		return ctx, fmt.Errorf("creating HTTP client: %w", err)
	}

	r.quotes = acl.NewQuotesClient(acl.QuotesClientConfig{Client: httpClient, Logger: r.logger})

	return ctx, nil
}

func (r *Runner) newView(logger *slog.Logger, reporter ports.ErrorReporter) *app.QuoteListView {
	return app.NewQuoteListView(app.QuoteListViewConfig{
		Quotes:      r.quotes,
		Credentials: r.creds,
		Reporter:    reporter,
		Policy:      r.policy,
		Logger:      logger,
	})
}

// report writes a failed operation to stderr.
func (r *Runner) report(_ context.Context, op string, err error) {
	fmt.Fprintf(r.errOut, "%s failed (%s): %v\n", op, domain.KindOf(err), err)
}

// List prints the saved quotes.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	view := r.newView(r.logger, ports.ErrorReporterFunc(r.report))
	defer view.Close()

	if err := view.Mount(ctx); err != nil {
		return errReported
	}

	return r.print(view.Snapshot(), cmd.Bool("json"))
}

// Add saves the arguments, joined by spaces, as one quote. A failed fetch is
// reported but does not stop the save.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if text == "" {
		return errNoText
	}

	view := r.newView(r.logger, ports.ErrorReporterFunc(r.report))
	defer view.Close()

	_ = view.Mount(ctx)

	view.SetDraft(text)

	if err := view.Submit(ctx); err != nil {
		return errReported
	}

	return r.print(view.Snapshot(), false)
}

// TUI opens the interactive view. Logs go to the log file only, if one is
// configured, so they do not tear the screen.
func (r *Runner) TUI(ctx context.Context, _ *cli.Command) error {
	view := r.newView(logging.NewWithWriter(&r.logCfg, io.Discard), nil)
	defer view.Close()

	if err := r.runTUI(ctx, view); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func (r *Runner) print(state app.ViewState, asJSON bool) error {
	texts := domain.Texts(state.Quotes)

	if asJSON {
		out, err := json.MarshalIndent(texts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}

		if _, err := fmt.Fprintln(r.output, string(out)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		return nil
	}

	for _, text := range texts {
		if _, err := fmt.Fprintln(r.output, text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	return nil
}
