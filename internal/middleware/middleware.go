// Package middleware holds http.RoundTripper decorators applied to every
// outgoing API request.
package middleware

import "net/http"

// Middleware decorates a round tripper.
type Middleware interface {
	Apply(next http.RoundTripper) http.RoundTripper
}

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base so that the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		rt = mws[i].Apply(rt)
	}
	return rt
}
