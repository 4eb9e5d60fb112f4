package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/domain"
)

// maxResponseBody bounds how much of a success response is decoded.
const maxResponseBody = 4 << 20

// BaseAdapter performs requests against one downstream service and maps
// every failure through MapHTTPError.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a new base adapter with the given client and service name.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// ServiceName returns the name of the external service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET and returns the 2xx body (caller must close).
func (a *BaseAdapter) Get(ctx context.Context, path, operation string, opts ...clients.RequestOption) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path, opts...)
	return a.checkResponse(resp, err, operation)
}

// Post performs a POST and returns the 2xx body (caller must close).
func (a *BaseAdapter) Post(ctx context.Context, path string, body io.Reader, operation string, opts ...clients.RequestOption) (io.ReadCloser, error) {
	resp, err := a.client.Post(ctx, path, body, opts...)
	return a.checkResponse(resp, err, operation)
}

func (a *BaseAdapter) checkResponse(resp *http.Response, err error, operation string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body holding a single value into T and
// closes it. Failures are decode errors for operation.
func DecodeResponse[T any](body io.ReadCloser, operation string) (*T, error) {
	if body == nil {
		return nil, domain.NewDecodeError(operation, errors.New("response body is nil"))
	}
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(io.LimitReader(body, maxResponseBody))

	var result T
	if err := dec.Decode(&result); err != nil {
		return nil, domain.NewDecodeError(operation, err)
	}

	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, domain.NewDecodeError(operation, errors.New("unexpected data after JSON value"))
	}

	return &result, nil
}

// Translator converts an external DTO to a domain value, rejecting payloads
// that do not have the expected shape.
type Translator[External any, Domain any] func(ext *External) (Domain, error)

// TranslateSlice applies translate to every item, failing on the first error.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) ([]D, error) {
	result := make([]D, 0, len(items))

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		result = append(result, translated)
	}

	return result, nil
}
