package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with a fresh uuid unless one is already set.
type RequestID struct {
	newID func() string
}

func NewRequestID() *RequestID {
	return &RequestID{newID: func() string { return uuid.NewString() }}
}

func (m *RequestID) Apply(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(RequestIDHeader) != "" {
			return next.RoundTrip(r)
		}
		req := r.Clone(r.Context())
		req.Header.Set(RequestIDHeader, m.newID())
		return next.RoundTrip(req)
	})
}
