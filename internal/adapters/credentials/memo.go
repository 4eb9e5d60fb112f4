package credentials

import (
	"context"

	appctx "github.com/jsamuelsen/quote-saver/internal/app/context"
	"github.com/jsamuelsen/quote-saver/internal/ports"
)

const memoKey = "credentials.token"

type memoToken struct {
	token string
	ok    bool
}

// RequestScoped wraps a provider so the token is read at most once per
// request. Without a request context in ctx every call reaches Provider.
type RequestScoped struct {
	Provider ports.CredentialProvider
}

// Token implements ports.CredentialProvider.
func (r RequestScoped) Token(ctx context.Context) (string, bool) {
	if r.Provider == nil {
		return "", false
	}

	rc := appctx.FromContext(ctx)
	if rc == nil {
		return r.Provider.Token(ctx)
	}

	got, err := appctx.Fetch(rc, memoKey, func(context.Context) (memoToken, error) {
		token, ok := r.Provider.Token(ctx)
		return memoToken{token: token, ok: ok}, nil
	})
	if err != nil {
		return "", false
	}

	return got.token, got.ok
}
