// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (QuoteError, ErrForbidden, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quote-saver/internal/domain"
)

// TokenKey is the key under which credential stores keep the bearer token.
const TokenKey = "token"

// QuotesService is the remote store of quotes for a credential holder.
//
// Implementations return *domain.QuoteError on failure so callers can tell
// transport, status and decode failures apart.
type QuotesService interface {
	// ListQuotes returns every quote belonging to the holder of token,
	// in the order the service returns them.
	ListQuotes(ctx context.Context, token string) ([]domain.Quote, error)

	// CreateQuote stores a new quote for the holder of token.
	// The returned quote is the server's representation when the response
	// body carries one, and nil otherwise.
	CreateQuote(ctx context.Context, token, text string) (*domain.Quote, error)
}

// CredentialProvider yields the bearer token of the current user.
// It is a synchronous read; refreshing or writing credentials is not part
// of this contract.
type CredentialProvider interface {
	// Token returns the stored token and whether one was present.
	Token(ctx context.Context) (string, bool)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, bool)

// Token implements CredentialProvider.
func (f CredentialFunc) Token(ctx context.Context) (string, bool) {
	return f(ctx)
}

// ErrorReporter receives failures of view operations so the hosting UI can
// decide whether and how to show them.
type ErrorReporter interface {
	// Report is called once per failed operation. op is one of the
	// domain.Op* names.
	Report(ctx context.Context, op string, err error)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(ctx context.Context, op string, err error)

// Report implements ErrorReporter.
func (f ErrorReporterFunc) Report(ctx context.Context, op string, err error) {
	f(ctx, op, err)
}
