package middleware

import "net/http"

const SessionHeader = "X-Session-ID"

// TokenSource returns the current session token, or "" when unauthenticated.
type TokenSource interface {
	Token() string
}

// SessionAuth attaches the session token read at dispatch time.
type SessionAuth struct {
	tokens TokenSource
}

func NewSessionAuth(tokens TokenSource) *SessionAuth {
	return &SessionAuth{tokens: tokens}
}

func (a *SessionAuth) Apply(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		token := ""
		if a.tokens != nil {
			token = a.tokens.Token()
		}
		if token == "" {
			return next.RoundTrip(r)
		}
		req := r.Clone(r.Context())
		req.Header.Set(SessionHeader, token)
		return next.RoundTrip(req)
	})
}
