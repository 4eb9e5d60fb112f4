package context

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

type ctxKey struct{}

// RequestContext memoizes lookups for the lifetime of one request.
// Concurrent lookups of a missing key share a single fetch.
type RequestContext struct {
	ctx    context.Context
	flight singleflight.Group

	mu     sync.RWMutex
	values map[string]any
}

// New creates a RequestContext whose fetches run with ctx.
func New(ctx context.Context) *RequestContext {
	return &RequestContext{ctx: ctx, values: make(map[string]any)}
}

// FromContext returns the RequestContext installed in ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}

	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)

	return rc
}

// WithContext installs rc in ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// Context returns the context fetches run with.
func (rc *RequestContext) Context() context.Context {
	return rc.ctx
}

// GetOrFetch returns the value stored under key, calling fetchFn on a miss.
// Errors are returned to every waiter but not stored.
func (rc *RequestContext) GetOrFetch(key string, fetchFn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := rc.lookup(key); ok {
		return v, nil
	}

	v, err, _ := rc.flight.Do(key, func() (any, error) {
		if v, ok := rc.lookup(key); ok {
			return v, nil
		}

		v, err := fetchFn(rc.ctx)
		if err != nil {
			return nil, err
		}

		rc.mu.Lock()
		rc.values[key] = v
		rc.mu.Unlock()

		return v, nil
	})

	return v, err
}

func (rc *RequestContext) lookup(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	v, ok := rc.values[key]

	return v, ok
}

// Fetch is the typed form of GetOrFetch. A nil rc always calls fetchFn
// with context.Background.
func Fetch[T any](rc *RequestContext, key string, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if rc == nil {
		return fetchFn(context.Background())
	}

	v, err := rc.GetOrFetch(key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("request context key %q holds %T", key, v)
	}

	return typed, nil
}
