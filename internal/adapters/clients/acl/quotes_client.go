package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// QuotesPath is the collection resource on the Quotes Service.
const QuotesPath = "/quotes"

// QuotesClientConfig contains configuration for the quotes client.
type QuotesClientConfig struct {
	// Client is the HTTP client; its BaseURL points at the Quotes Service.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// QuotesClient implements ports.QuotesService and ports.HealthChecker
// against the Quotes Service HTTP API.
type QuotesClient struct {
	BaseAdapter
	logger *slog.Logger
}

// NewQuotesClient creates a new quotes client adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewQuotesClient(cfg QuotesClientConfig) *QuotesClient {
	if cfg.Client == nil {
		panic("QuotesClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuotesClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		logger:      logger,
	}
}

// quoteRecord is the external DTO. Quote is a pointer so a missing field can
// be told apart from an empty string.
type quoteRecord struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Quote *string         `json:"quote"`
}

// createRequest is the POST body.
type createRequest struct {
	Quote string `json:"quote"`
}

// ListQuotes fetches every quote of the token holder.
// Implements ports.QuotesService.
func (c *QuotesClient) ListQuotes(ctx context.Context, token string) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", QuotesPath))

	body, err := c.Get(ctx, QuotesPath, domain.OpListQuotes, clients.WithBearerToken(token))
	if err != nil {
		return nil, err
	}

	records, err := DecodeResponse[[]quoteRecord](body, domain.OpListQuotes)
	if err != nil {
		return nil, err
	}

	// A JSON null decodes to a nil slice; only an array is a list.
	if *records == nil {
		return nil, domain.NewDecodeError(domain.OpListQuotes, errors.New("response is not a JSON array"))
	}

	quotes, err := TranslateSlice(*records, translateRecord)
	if err != nil {
		return nil, domain.NewDecodeError(domain.OpListQuotes, err)
	}

	c.logger.DebugContext(ctx, "quotes fetched", slog.Int("count", len(quotes)))

	return quotes, nil
}

// CreateQuote stores text for the token holder. The created record is
// returned when the response body carries one; any other 2xx body yields nil.
// Implements ports.QuotesService.
func (c *QuotesClient) CreateQuote(ctx context.Context, token, text string) (*domain.Quote, error) {
	payload, err := json.Marshal(createRequest{Quote: text})
	if err != nil {
		return nil, domain.NewInputError(domain.OpCreateQuote, err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "starting request",
		slog.String("path", QuotesPath),
		slog.Int("quote_len", len(text)))

	body, err := c.Post(ctx, QuotesPath, bytes.NewReader(payload), domain.OpCreateQuote, clients.WithBearerToken(token))
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	created := parseCreated(body)

	c.logger.DebugContext(ctx, "quote created", slog.Bool("server_record", created != nil))

	return created, nil
}

// parseCreated reads a created record leniently: the reference service
// answers {"msg": "Quote added successfully"}, which carries no record.
func parseCreated(body io.Reader) *domain.Quote {
	var rec quoteRecord
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBody)).Decode(&rec); err != nil {
		return nil
	}

	quote, err := translateRecord(&rec)
	if err != nil {
		return nil
	}

	return &quote
}

// translateRecord converts the external DTO to a domain Quote, dropping the id.
func translateRecord(rec *quoteRecord) (domain.Quote, error) {
	if rec.Quote == nil {
		return domain.Quote{}, errors.New(`record has no "quote" field`)
	}

	return domain.Quote{Text: *rec.Quote}, nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (c *QuotesClient) Name() string {
	return c.ServiceName()
}

// Check reports whether the Quotes Service is reachable. It needs no token:
// any HTTP answer, including 401, proves the service is up.
// Implements ports.HealthChecker.
func (c *QuotesClient) Check(ctx context.Context) error {
	if c.client.CircuitState() == clients.StateOpen {
		return fmt.Errorf("%s: %w", c.ServiceName(), clients.ErrCircuitOpen)
	}

	resp, err := c.client.Get(ctx, QuotesPath)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s returned status %d", c.ServiceName(), resp.StatusCode)
	}

	return nil
}
