package dto

import (
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/domain"
)

// QuoteRequest is the body of a quote submission, as a form post from the
// dashboard or as JSON on the API. Only emptiness is checked; whitespace
// is accepted the way a required HTML input accepts it.
type QuoteRequest struct {
	Quote string `json:"quote" form:"quote" validate:"required"`
}

// ViewResponse is the JSON rendering of a dashboard view.
type ViewResponse struct {
	Draft      string   `json:"draft"`
	Quotes     []string `json:"quotes"`
	Version    uint64   `json:"version"`
	Mounted    bool     `json:"mounted"`
	Fetching   bool     `json:"fetching"`
	Submitting bool     `json:"submitting"`
	Error      string   `json:"error,omitempty"`
	ErrorKind  string   `json:"errorKind,omitempty"`
}

// NewViewResponse converts a view snapshot.
func NewViewResponse(state app.ViewState) *ViewResponse {
	resp := &ViewResponse{
		Draft:      state.Draft,
		Quotes:     domain.Texts(state.Quotes),
		Version:    state.Version,
		Mounted:    state.Mounted,
		Fetching:   state.Fetching,
		Submitting: state.Submitting,
	}

	if state.Err != nil {
		resp.Error = state.Err.Error()
		resp.ErrorKind = domain.KindOf(state.Err).String()
	}

	return resp
}
