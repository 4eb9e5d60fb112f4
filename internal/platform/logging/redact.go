package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// secretFields are attribute keys whose values are always masked. The
// quotes token travels as a header, a cookie and a config value, so each of
// those spellings is listed.
var secretFields = []string{
	"token", "bearer", "bearer_token", "quotes_token", "quotesToken",
	"authorization", "cookie", "set-cookie",
	"credential", "credentials",
	"password", "api_key", "apiKey", "apikey",
	"access_token", "accessToken",
}

// secretPrefixes mask any key that starts with them.
var secretPrefixes = []string{"secret", "private"}

// secretValues mask values that look like credentials regardless of key.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
}

// DefaultRedactOptions returns the masq options that keep the quotes token
// out of every log sink.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(secretFields)+len(secretPrefixes)+len(secretValues))

	for _, name := range secretFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, prefix := range secretPrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	for _, re := range secretValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that applies
// DefaultRedactOptions followed by extra.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), extra...)...)
}
