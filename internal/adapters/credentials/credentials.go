// Package credentials provides ports.CredentialProvider implementations.
//
// Providers only read a bearer token; obtaining, refreshing or revoking one
// happens elsewhere. An empty token is reported as absent.
package credentials

import (
	"context"
	"os"
	"strings"

	"github.com/jsamuelsen/quote-saver/internal/ports"
)

// Static returns the same token for every call, typically from a flag.
type Static string

// Token implements ports.CredentialProvider.
func (s Static) Token(context.Context) (string, bool) {
	token := strings.TrimSpace(string(s))
	return token, token != ""
}

// Env reads the token from an environment variable on every call.
type Env string

// Token implements ports.CredentialProvider.
func (e Env) Token(context.Context) (string, bool) {
	token := strings.TrimSpace(os.Getenv(string(e)))
	return token, token != ""
}

type tokenCtxKey struct{}

// WithToken stores a request-scoped token in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	token, ok := ctx.Value(tokenCtxKey{}).(string)
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

// ContextProvider reads the token the web middleware put into the request
// context.
type ContextProvider struct{}

// Token implements ports.CredentialProvider.
func (ContextProvider) Token(ctx context.Context) (string, bool) {
	return TokenFromContext(ctx)
}

// Chain asks each provider in order and returns the first token found.
type Chain []ports.CredentialProvider

// Token implements ports.CredentialProvider.
func (c Chain) Token(ctx context.Context) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}

		if token, ok := p.Token(ctx); ok {
			return token, true
		}
	}

	return "", false
}

// ParseAuthorization extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ParseAuthorization(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
