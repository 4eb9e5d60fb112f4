package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/adapters/credentials"
	appctx "github.com/jsamuelsen/quote-saver/internal/app/context"
)

const (
	// HeaderAuthorization carries "Bearer <token>".
	HeaderAuthorization = "Authorization"

	// DefaultCredentialCookie is the cookie read when none is configured.
	DefaultCredentialCookie = "token"
)

// Credential returns middleware that makes the caller's bearer token
// available to credentials.ContextProvider. The token is taken from the
// cookie named cookieName, falling back to the Authorization header.
// Requests without a token pass through unchanged; the Quotes Service
// decides what an anonymous call gets.
//
// It also installs a request context so the token is read once per request.
func Credential(cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = DefaultCredentialCookie
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if token, ok := TokenFromRequest(c, cookieName); ok {
			ctx = credentials.WithToken(ctx, token)
		}

		ctx = appctx.WithContext(ctx, appctx.New(ctx))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// TokenFromRequest reads the token from the named cookie or, failing that,
// the Authorization header.
func TokenFromRequest(c *gin.Context, cookieName string) (string, bool) {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, true
	}

	return credentials.ParseAuthorization(c.GetHeader(HeaderAuthorization))
}
