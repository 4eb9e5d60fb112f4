//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
)

// fakeQuotesService is an in-memory Quotes Service. Every known token owns
// its own list; the wire format matches the reference deployment.
type fakeQuotesService struct {
	*httptest.Server

	mu     sync.Mutex
	quotes map[string][]string

	// failStatus, when set, is returned by every /quotes request.
	failStatus atomic.Int32

	// listDelay is applied before answering a list request.
	listDelay atomic.Int64

	lists   atomic.Int32
	creates atomic.Int32
}

// startFakeQuotesService starts a service that knows tokens. The caller
// closes it.
func startFakeQuotesService(tokens ...string) *fakeQuotesService {
	f := &fakeQuotesService{quotes: make(map[string][]string)}
	for _, token := range tokens {
		f.quotes[token] = []string{}
	}

	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))

	return f
}

func newFakeQuotesService(t *testing.T, tokens ...string) *fakeQuotesService {
	t.Helper()

	f := startFakeQuotesService(tokens...)
	t.Cleanup(f.Close)

	return f
}

// seed replaces the list of token.
func (f *fakeQuotesService) seed(token string, texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quotes[token] = append([]string{}, texts...)
}

// stored returns a copy of the list of token.
func (f *fakeQuotesService) stored(token string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string{}, f.quotes[token]...)
}

func (f *fakeQuotesService) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path != "/quotes" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if status := int(f.failStatus.Load()); status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"msg":"injected failure"}`))

		return
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Missing Authorization Header"}`))

		return
	}

	f.mu.Lock()
	_, known := f.quotes[token]
	f.mu.Unlock()

	if !known {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"Signature verification failed"}`))

		return
	}

	switch r.Method {
	case http.MethodGet:
		f.list(w, token)
	case http.MethodPost:
		f.create(w, r, token)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeQuotesService) list(w http.ResponseWriter, token string) {
	f.lists.Add(1)

	if d := time.Duration(f.listDelay.Load()); d > 0 {
		time.Sleep(d)
	}

	type record struct {
		ID    int    `json:"id"`
		Quote string `json:"quote"`
	}

	f.mu.Lock()
	records := make([]record, 0, len(f.quotes[token]))
	for i, text := range f.quotes[token] {
		records = append(records, record{ID: i + 1, Quote: text})
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(records)
}

func (f *fakeQuotesService) create(w http.ResponseWriter, r *http.Request, token string) {
	f.creates.Add(1)

	var body struct {
		Quote string `json:"quote"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"invalid JSON"}`))

		return
	}

	f.mu.Lock()
	f.quotes[token] = append(f.quotes[token], body.Quote)
	f.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"msg":"Quote added successfully"}`))
}

// testClientConfig returns a client config pointed at baseURL without
// retries, so every failure is seen once.
func testClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "quotes-service",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
	}
}
