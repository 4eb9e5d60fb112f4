// Package domain contains core business entities and rules.
package domain

// Quote is a single saved quote belonging to the credential holder.
// It carries no identifier, timestamp or ownership metadata: quotes are
// never updated or deleted, so nothing needs to address one individually.
type Quote struct {
	// Text is the quote as typed by the user, displayed verbatim.
	Text string
}

// NewQuote builds a Quote from raw text.
// Returns a ValidationError when the text is empty. Whitespace is kept
// as typed, the same way a required form field accepts it.
func NewQuote(text string) (Quote, error) {
	if text == "" {
		return Quote{}, NewValidationError("quote", "is required")
	}

	return Quote{Text: text}, nil
}

// Texts returns the text of every quote, preserving order.
func Texts(quotes []Quote) []string {
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.Text
	}

	return out
}
