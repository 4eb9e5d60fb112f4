//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-saver/internal/adapters/credentials"
	httpadapter "github.com/jsamuelsen/quote-saver/internal/adapters/http"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
	"github.com/jsamuelsen/quote-saver/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// dashboardEnv is a dashboard wired like cmd/dashboard, in front of a fake
// Quotes Service.
type dashboardEnv struct {
	server   *httptest.Server
	sessions *handlers.SessionStore
}

// newDashboardEnv starts a dashboard against fake. The caller closes it.
func newDashboardEnv(fake *fakeQuotesService, policy app.ViewPolicy) (*dashboardEnv, error) {
	quotes, err := buildQuotesClient(testClientConfig(fake.URL))
	if err != nil {
		return nil, err
	}

	tokens := credentials.RequestScoped{Provider: credentials.ContextProvider{}}

	sessions := handlers.NewSessionStore(handlers.SessionStoreConfig{
		NewView: func() *app.QuoteListView {
			return app.NewQuoteListView(app.QuoteListViewConfig{
				Quotes:      quotes,
				Credentials: tokens,
				Policy:      policy,
				Logger:      discardLogger(),
			})
		},
		TTL:    time.Minute,
		Logger: discardLogger(),
	})

	registry := ports.NewHealthRegistry()
	if err := registry.Register(quotes); err != nil {
		return nil, err
	}

	if err := registry.Register(sessions); err != nil {
		return nil, err
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.NewDefaultRouterConfig(
		discardLogger(),
		&config.AppConfig{Name: "quote-saver", Version: "test", Environment: "test"},
		handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "none", "now")),
		handlers.NewDashboardHandler(handlers.DashboardConfig{Sessions: sessions, Logger: discardLogger()}),
	))

	return &dashboardEnv{server: httptest.NewServer(engine), sessions: sessions}, nil
}

func (e *dashboardEnv) Close() {
	e.server.Close()
	e.sessions.Close()
}

func startDashboard(t *testing.T, fake *fakeQuotesService, policy app.ViewPolicy) *dashboardEnv {
	t.Helper()

	env, err := newDashboardEnv(fake, policy)
	require.NoError(t, err)
	t.Cleanup(env.Close)

	return env
}

// browser is one user agent with its own cookie jar.
type browser struct {
	base   *url.URL
	client *http.Client
}

func newBrowser(baseURL, token string) (*browser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	if token != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: middleware.DefaultCredentialCookie, Value: token, Path: "/"}})
	}

	return &browser{base: base, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}, nil
}

// get returns the status and body of GET path.
func (b *browser) get(path string) (int, string, error) {
	resp, err := b.client.Get(b.base.String() + path)
	if err != nil {
		return 0, "", err
	}

	return readResponse(resp)
}

// submit posts the dashboard form; redirects are followed.
func (b *browser) submit(quote string) (int, string, error) {
	resp, err := b.client.PostForm(b.base.String()+"/", url.Values{"quote": {quote}})
	if err != nil {
		return 0, "", err
	}

	return readResponse(resp)
}

// view returns the JSON snapshot of the caller's session.
func (b *browser) view() (*dto.ViewResponse, error) {
	status, body, err := b.get("/api/v1/view")
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("GET /api/v1/view: status %d: %s", status, body)
	}

	var resp dto.ViewResponse
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding view: %w", err)
	}

	return &resp, nil
}

func readResponse(resp *http.Response) (int, string, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}

	return resp.StatusCode, string(body), nil
}
