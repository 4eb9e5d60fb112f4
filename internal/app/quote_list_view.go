// Package app contains the application layer: use cases that coordinate the
// domain with infrastructure through ports.
//
// The central use case is QuoteListView, a rendering-neutral view model for
// one user's list of quotes. Hosts (the web dashboard, the terminal UI, the
// CLI) own one instance each and render its Snapshot.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
	"github.com/jsamuelsen/quote-saver/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-saver/internal/ports"
)

// ViewPolicy selects how a QuoteListView treats server results and failures.
type ViewPolicy struct {
	// TrustLocalEcho appends the submitted draft after a successful create.
	// When false the server's record is appended if the response carried one,
	// otherwise the list is fetched again.
	TrustLocalEcho bool

	// SilentFetchFailure keeps fetch failures out of ViewState.Err. They are
	// still logged and reported.
	SilentFetchFailure bool

	// SilentSubmitFailure keeps submit failures out of ViewState.Err.
	SilentSubmitFailure bool
}

// DefaultViewPolicy trusts the local echo and keeps every failure silent.
func DefaultViewPolicy() ViewPolicy {
	return ViewPolicy{
		TrustLocalEcho:      true,
		SilentFetchFailure:  true,
		SilentSubmitFailure: true,
	}
}

// ViewState is a point-in-time copy of a view, safe to render.
type ViewState struct {
	Draft   string
	Quotes  []domain.Quote
	Version uint64
	Mounted bool

	// Fetching and Submitting report operations still in flight.
	Fetching   bool
	Submitting bool

	// Err is the last failure a non-silent policy surfaced, or nil.
	Err error
}

// QuoteListViewConfig holds the dependencies of a QuoteListView.
type QuoteListViewConfig struct {
	// Quotes is the remote store. Required.
	Quotes ports.QuotesService

	// Credentials yields the bearer token. A nil provider means no token.
	Credentials ports.CredentialProvider

	// Reporter receives every failed fetch or submit. Optional.
	Reporter ports.ErrorReporter

	Policy   ViewPolicy
	Metrics  *telemetry.ViewMetrics
	Executor *Executor
	Logger   *slog.Logger
}

// QuoteListView holds a draft and the ordered list of quotes of one user.
//
// All methods are safe for concurrent use. Remote calls run without holding
// the state lock; a version counter keeps a slow fetch from overwriting a
// newer append.
type QuoteListView struct {
	quotes   ports.QuotesService
	creds    ports.CredentialProvider
	reporter ports.ErrorReporter
	policy   ViewPolicy
	metrics  *telemetry.ViewMetrics
	exec     *Executor
	logger   *slog.Logger

	// closeCtx is canceled by Close and aborts in-flight remote calls.
	closeCtx context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	draft      string
	list       []domain.Quote
	version    uint64
	mounted    bool
	mountToken string
	mountSeq   uint64
	mountErr   bool // the latest mount's fetch failed
	fetching   int
	submitting int
	lastErr    error
	closed     bool
}

// NewQuoteListView creates an empty, unmounted view.
// Panics if cfg.Quotes is nil.
func NewQuoteListView(cfg QuoteListViewConfig) *QuoteListView {
	if cfg.Quotes == nil {
		panic("QuoteListView: Quotes is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.QuoteListView"))

	exec := cfg.Executor
	if exec == nil {
		exec = NewExecutor(logger)
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = ports.CredentialFunc(func(context.Context) (string, bool) { return "", false })
	}

	closeCtx, cancel := context.WithCancel(context.Background())

	return &QuoteListView{
		quotes:   cfg.Quotes,
		creds:    creds,
		reporter: cfg.Reporter,
		policy:   cfg.Policy,
		metrics:  cfg.Metrics,
		exec:     exec,
		logger:   logger,
		closeCtx: closeCtx,
		cancel:   cancel,
		list:     []domain.Quote{},
	}
}

// Policy returns the policy the view was created with.
func (v *QuoteListView) Policy() ViewPolicy {
	return v.policy
}

// Mount loads the list the first time it is called and again whenever the
// credential token differs from the one used by the previous mount. Other
// calls return nil without touching the network.
//
// On success the list is replaced wholesale. On failure the list is left as
// it was and a *domain.QuoteError is returned.
func (v *QuoteListView) Mount(ctx context.Context) error {
	return v.mount(ctx, false)
}

// Remount loads the list again even when the token is unchanged. It is the
// equivalent of displaying the view afresh.
func (v *QuoteListView) Remount(ctx context.Context) error {
	return v.mount(ctx, true)
}

// MountFailed reports whether the fetch of the latest mount failed.
func (v *QuoteListView) MountFailed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.mountErr
}

func (v *QuoteListView) mount(ctx context.Context, force bool) error {
	token, _ := v.creds.Token(ctx)

	v.mu.Lock()

	if v.closed {
		v.mu.Unlock()
		return domain.ErrClosed
	}

	if !force && v.mounted && v.mountToken == token {
		v.mu.Unlock()
		return nil
	}

	v.mounted = true
	v.mountToken = token
	v.mountSeq++
	v.mountErr = false
	seq := v.mountSeq
	v.mu.Unlock()

	return v.fetch(ctx, token, seq)
}

// fetch lists quotes and replaces the local list when nothing newer has been
// applied meanwhile. seq identifies the mount that started it; a zero seq
// skips that check.
func (v *QuoteListView) fetch(ctx context.Context, token string, seq uint64) error {
	logger := v.loggerFor(ctx)

	v.mu.Lock()
	start := v.version
	v.fetching++
	v.mu.Unlock()

	logger.Log(ctx, logging.LevelTrace, "fetching quotes",
		slog.Bool("has_token", token != ""),
		slog.Uint64("version", start))

	opCtx, stop := v.bind(ctx)
	quotes, err := v.quotes.ListQuotes(opCtx, token)
	stop()

	v.mu.Lock()
	v.fetching--

	if v.closed {
		v.mu.Unlock()
		v.metrics.RecordFetch(ctx, telemetry.OutcomeDiscarded)
		logger.Log(ctx, logging.LevelTrace, "fetch result discarded", slog.String("reason", "closed"))

		return domain.ErrClosed
	}

	if err != nil {
		err = asQuoteError(domain.OpListQuotes, err)
		if !v.policy.SilentFetchFailure {
			v.lastErr = err
		}
		if seq != 0 && seq == v.mountSeq {
			v.mountErr = true
		}
		v.mu.Unlock()

		v.metrics.RecordFetch(ctx, telemetry.OutcomeFailed)
		v.fail(ctx, domain.OpListQuotes, err)

		return err
	}

	if v.version != start || (seq != 0 && v.mountSeq != seq) {
		current := v.version
		v.mu.Unlock()

		v.metrics.RecordFetch(ctx, telemetry.OutcomeDiscarded)
		logger.Log(ctx, logging.LevelTrace, "fetch result discarded",
			slog.String("reason", "stale"),
			slog.Uint64("started_at", start),
			slog.Uint64("version", current))

		return nil
	}

	v.list = append(make([]domain.Quote, 0, len(quotes)), quotes...)
	v.version++
	v.lastErr = nil
	v.mountErr = false
	size, version := len(v.list), v.version
	v.mu.Unlock()

	v.metrics.RecordFetch(ctx, telemetry.OutcomeApplied)
	v.metrics.RecordListSize(ctx, size)
	logger.DebugContext(ctx, "quotes loaded",
		slog.Int("count", size),
		slog.Uint64("version", version))

	return nil
}

// SetDraft replaces the draft text. It is called on every edit.
func (v *QuoteListView) SetDraft(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}

	v.draft = text
}

// submitInput is what Submit captured when it started.
type submitInput struct {
	text  string
	token string
}

// submitPlan is the verified state change of a successful create.
type submitPlan struct {
	// appendQuote is appended to the list when set.
	appendQuote *domain.Quote

	// replace holds a re-fetched list applied only if the version is still
	// replaceFrom.
	replace     []domain.Quote
	replaceFrom uint64
}

// Submit creates the current draft on the server. An empty draft fails with
// a validation error before any request is made.
//
// On success the quote is appended and the draft is cleared, unless the user
// edited it while the request was in flight. On failure the draft and the
// list are left untouched.
func (v *QuoteListView) Submit(ctx context.Context) error {
	token, _ := v.creds.Token(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return domain.ErrClosed
	}

	input := submitInput{text: v.draft, token: token}
	v.mu.Unlock()

	op := Operation[submitInput, *domain.Quote, submitPlan]{
		Name:     "submit quote",
		Validate: v.validateSubmit,
		Perform:  v.performSubmit,
		Verify:   v.verifySubmit,
		Archive:  v.archiveSubmit,
	}

	_, err := Execute(ctx, v.exec, op, input)
	if err == nil {
		return nil
	}

	err = Cause(err)

	switch {
	case errors.Is(err, domain.ErrClosed):
		v.metrics.RecordSubmit(ctx, telemetry.OutcomeDiscarded)
	case domain.KindOf(err) == domain.KindValidation:
		// Nothing left the process.
	default:
		v.metrics.RecordSubmit(ctx, telemetry.OutcomeFailed)
		v.fail(ctx, domain.OpCreateQuote, err)
	}

	return err
}

func (v *QuoteListView) validateSubmit(_ context.Context, in submitInput) error {
	if _, err := domain.NewQuote(in.text); err != nil {
		return domain.NewInputError(domain.OpCreateQuote, err)
	}

	return nil
}

func (v *QuoteListView) performSubmit(ctx context.Context, in submitInput) (*domain.Quote, error) {
	v.mu.Lock()
	v.submitting++
	v.mu.Unlock()

	opCtx, stop := v.bind(ctx)
	created, err := v.quotes.CreateQuote(opCtx, in.token, in.text)
	stop()

	v.mu.Lock()
	v.submitting--
	closed := v.closed

	if err != nil && !closed {
		err = asQuoteError(domain.OpCreateQuote, err)
		if !v.policy.SilentSubmitFailure {
			v.lastErr = err
		}
	}
	v.mu.Unlock()

	if closed {
		return nil, domain.ErrClosed
	}

	return created, err
}

func (v *QuoteListView) verifySubmit(ctx context.Context, in submitInput, created *domain.Quote) (submitPlan, error) {
	if v.policy.TrustLocalEcho {
		return submitPlan{appendQuote: &domain.Quote{Text: in.text}}, nil
	}

	if created != nil {
		return submitPlan{appendQuote: created}, nil
	}

	v.mu.Lock()
	from := v.version
	v.mu.Unlock()

	opCtx, stop := v.bind(ctx)
	quotes, err := v.quotes.ListQuotes(opCtx, in.token)
	stop()

	if err != nil {
		// The quote exists on the server; only the read-back failed.
		err = asQuoteError(domain.OpListQuotes, err)
		v.metrics.RecordFetch(ctx, telemetry.OutcomeFailed)
		v.fail(ctx, domain.OpListQuotes, err)

		return submitPlan{}, nil
	}

	return submitPlan{replace: quotes, replaceFrom: from}, nil
}

func (v *QuoteListView) archiveSubmit(ctx context.Context, in submitInput, plan submitPlan) error {
	v.mu.Lock()

	if v.closed {
		v.mu.Unlock()
		return domain.ErrClosed
	}

	switch {
	case plan.appendQuote != nil:
		v.list = append(v.list, *plan.appendQuote)
		v.version++
	case plan.replace != nil && v.version == plan.replaceFrom:
		v.list = append(make([]domain.Quote, 0, len(plan.replace)), plan.replace...)
		v.version++
	}

	if v.draft == in.text {
		v.draft = ""
	}

	v.lastErr = nil
	size, version := len(v.list), v.version
	v.mu.Unlock()

	v.metrics.RecordSubmit(ctx, telemetry.OutcomeApplied)
	v.metrics.RecordListSize(ctx, size)
	v.loggerFor(ctx).DebugContext(ctx, "quote added",
		slog.Int("count", size),
		slog.Uint64("version", version))

	return nil
}

// Snapshot returns a copy of the current state.
func (v *QuoteListView) Snapshot() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return ViewState{
		Draft:      v.draft,
		Quotes:     append([]domain.Quote(nil), v.list...),
		Version:    v.version,
		Mounted:    v.mounted,
		Fetching:   v.fetching > 0,
		Submitting: v.submitting > 0,
		Err:        v.lastErr,
	}
}

// Close tears the view down. In-flight calls are canceled and their results
// discarded; later calls fail with domain.ErrClosed. Close is idempotent.
func (v *QuoteListView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}

	v.closed = true
	v.draft = ""
	v.list = nil
	v.lastErr = nil
	v.cancel()
}

// Closed reports whether Close has been called.
func (v *QuoteListView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.closed
}

// bind derives a context that is also canceled when the view closes.
func (v *QuoteListView) bind(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.closeCtx, cancel)

	return opCtx, func() {
		stop()
		cancel()
	}
}

// fail sends err to the diagnostic log and the reporter.
func (v *QuoteListView) fail(ctx context.Context, op string, err error) {
	v.loggerFor(ctx).WarnContext(ctx, "quotes operation failed",
		slog.String("op", op),
		slog.String("kind", domain.KindOf(err).String()),
		slog.Any("error", err))

	if v.reporter != nil {
		v.reporter.Report(ctx, op, err)
	}
}

func (v *QuoteListView) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, v.logger)
}

// asQuoteError makes sure err carries a QuoteError kind. Errors of unknown
// origin are treated as transport failures.
func asQuoteError(op string, err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}

	return domain.NewTransportError(op, err)
}
