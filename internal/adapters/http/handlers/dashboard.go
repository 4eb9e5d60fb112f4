package handlers

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// dashboardTemplates is parsed once; a broken template fails at startup.
var dashboardTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const pageTitle = "Quote Saver"

// DashboardConfig configures a DashboardHandler.
type DashboardConfig struct {
	Sessions *SessionStore

	// SessionCookie names the cookie carrying the session id.
	SessionCookie string

	// SecureCookie marks the session cookie Secure.
	SecureCookie bool

	Logger *slog.Logger
}

// DashboardHandler serves the quotes page and its JSON twin.
type DashboardHandler struct {
	sessions     *SessionStore
	cookie       string
	secureCookie bool
	logger       *slog.Logger
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(cfg DashboardConfig) *DashboardHandler {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = DefaultSessionCookie
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &DashboardHandler{
		sessions:     cfg.Sessions,
		cookie:       cfg.SessionCookie,
		secureCookie: cfg.SecureCookie,
		logger:       cfg.Logger,
	}
}

// dashboardPage is the data of the dashboard template.
type dashboardPage struct {
	Title       string
	Draft       string
	Quotes      []string
	Error       string
	FieldErrors map[string]string
}

// Show handles GET /.
// The view is mounted on the first visit and again whenever the caller's
// token changes. A page load after a failed fetch mounts again, as a browser
// reload would; the JSON view endpoint never does.
func (h *DashboardHandler) Show(c *gin.Context) {
	id, view := h.session(c)

	mount := view.Mount
	if view.MountFailed() {
		mount = view.Remount
	}

	err := mount(c.Request.Context())
	if errors.Is(err, domain.ErrClosed) {
		h.restart(c, id)
		return
	}

	h.render(c, http.StatusOK, view.Snapshot(), nil)
}

// Submit handles POST / with the form field "quote".
// On success it redirects back to the page; on failure the page is
// rendered again with the typed text still in the input.
func (h *DashboardHandler) Submit(c *gin.Context) {
	id, view := h.session(c)

	var req dto.QuoteRequest
	if err := dto.BindFormAndValidate(c, &req); err != nil {
		state := view.Snapshot()
		state.Draft = req.Quote

		h.render(c, http.StatusBadRequest, state, fieldErrors(err))

		return
	}

	view.SetDraft(req.Quote)

	err := view.Submit(c.Request.Context())
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, domain.ErrClosed):
		h.restart(c, id)
	default:
		status, _ := dto.MapError(err)
		h.render(c, status, view.Snapshot(), nil)
	}
}

// GetView handles GET /api/v1/view and returns the view as JSON.
func (h *DashboardHandler) GetView(c *gin.Context) {
	_, view := h.session(c)

	if err := view.Mount(c.Request.Context()); errors.Is(err, domain.ErrClosed) {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewViewResponse(view.Snapshot()))
}

// draftRequest is the body of PUT /api/v1/view/draft. An empty draft is
// allowed; it clears the input.
type draftRequest struct {
	Draft string `json:"draft"`
}

// SetDraft handles PUT /api/v1/view/draft.
func (h *DashboardHandler) SetDraft(c *gin.Context) {
	_, view := h.session(c)

	var req draftRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"request body must be a JSON object",
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	view.SetDraft(req.Draft)

	c.JSON(http.StatusOK, dto.NewViewResponse(view.Snapshot()))
}

// AddQuote handles POST /api/v1/view/quotes with a JSON body {"quote": "..."}.
func (h *DashboardHandler) AddQuote(c *gin.Context) {
	_, view := h.session(c)

	var req dto.QuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeValidation, "request validation failed").
			WithDetails(fieldErrors(err)).
			WithTraceID(dto.GetTraceID(c)))

		return
	}

	view.SetDraft(req.Quote)

	if err := view.Submit(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewViewResponse(view.Snapshot()))
}

// RegisterDashboardRoutes registers the page routes on the engine and the
// JSON routes on api.
//   - GET  /                   - Render the page
//   - POST /                   - Submit the form
//   - GET  /api/v1/view        - View snapshot
//   - PUT  /api/v1/view/draft  - Replace the draft
//   - POST /api/v1/view/quotes - Submit a quote
func (h *DashboardHandler) RegisterDashboardRoutes(pages gin.IRoutes, api *gin.RouterGroup) {
	pages.GET("/", h.Show)
	pages.POST("/", h.Submit)

	view := api.Group("/view")
	view.GET("", h.GetView)
	view.PUT("/draft", h.SetDraft)
	view.POST("/quotes", h.AddQuote)
}

// session returns the caller's session, starting one when the cookie is
// missing or stale. The session id is added to the request logger.
func (h *DashboardHandler) session(c *gin.Context) (string, *app.QuoteListView) {
	var (
		view *app.QuoteListView
		ok   bool
	)

	id, err := c.Cookie(h.cookie)
	if err == nil && id != "" {
		view, ok = h.sessions.Get(id)
	}

	if !ok {
		id, view = h.sessions.Create()

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookie, id, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)

		logging.FromContextOr(c.Request.Context(), h.logger).Debug("session started")
	}

	c.Request = c.Request.WithContext(logging.WithSessionID(c.Request.Context(), id))

	return id, view
}

// restart drops a session whose view was closed mid-request and sends the
// browser back to the page to start a new one.
func (h *DashboardHandler) restart(c *gin.Context, id string) {
	h.sessions.Remove(id)
	c.SetCookie(h.cookie, "", -1, "/", "", h.secureCookie, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *DashboardHandler) render(c *gin.Context, status int, state app.ViewState, fields map[string]string) {
	page := dashboardPage{
		Title:       pageTitle,
		Draft:       state.Draft,
		Quotes:      domain.Texts(state.Quotes),
		FieldErrors: fields,
	}

	if state.Err != nil {
		page.Error = errorMessage(state.Err)
	}

	c.Render(status, render.HTML{
		Template: dashboardTemplates,
		Name:     "dashboard",
		Data:     page,
	})
}

// fieldErrors turns a binding or validation failure into per-field messages.
func fieldErrors(err error) map[string]string {
	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		return fields
	}

	return map[string]string{"quote": "this field is required"}
}

// errorMessage is the user-facing text of a surfaced failure.
func errorMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindStatus:
		if domain.IsForbidden(err) {
			return "Your session is not authorized to access quotes."
		}

		return "The quotes service rejected the request."
	case domain.KindDecode:
		return "The quotes service sent a response that could not be read."
	default:
		return "The quotes service could not be reached."
	}
}
