// Package context memoizes per-request lookups.
//
// The credential middleware installs a RequestContext on every dashboard
// request, so the bearer token is read once no matter how many view
// operations ask for it:
//
//	token, err := context.Fetch(rc, "credentials.token", readToken)
//
// Failed fetches are not cached; the next caller tries again.
package context
