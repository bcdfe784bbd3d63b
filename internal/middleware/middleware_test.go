package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func captureTransport(got **http.Request) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		*got = r
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusOK)
		return rec.Result(), nil
	})
}

func TestSessionAuth_AttachesToken(t *testing.T) {
	var got *http.Request
	rt := NewSessionAuth(staticToken("sess-1")).Apply(captureTransport(&got))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/auth/me/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Header.Get(SessionHeader) != "sess-1" {
		t.Fatalf("expected session header, got %q", got.Header.Get(SessionHeader))
	}
	if req.Header.Get(SessionHeader) != "" {
		t.Fatal("original request must not be modified")
	}
}

func TestSessionAuth_NoTokenSendsUnauthenticated(t *testing.T) {
	var got *http.Request
	rt := NewSessionAuth(staticToken("")).Apply(captureTransport(&got))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/auth/me/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.Header[SessionHeader]; ok {
		t.Fatal("expected no session header")
	}
}

func TestRequestID_SetsUUID(t *testing.T) {
	var got *http.Request
	rt := NewRequestID().Apply(captureTransport(&got))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id := got.Header.Get(RequestIDHeader); len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("expected uuid request id, got %q", id)
	}
}

func TestRequestID_KeepsExisting(t *testing.T) {
	var got *http.Request
	rt := NewRequestID().Apply(captureTransport(&got))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Header.Get(RequestIDHeader) != "fixed" {
		t.Fatalf("expected existing id to be preserved")
	}
}

type orderMiddleware struct {
	name  string
	order *[]string
}

func (m orderMiddleware) Apply(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		*m.order = append(*m.order, m.name)
		return next.RoundTrip(r)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	var got *http.Request
	rt := Chain(captureTransport(&got),
		orderMiddleware{"first", &order},
		nil,
		NewRateLimiter(0, 0),
		orderMiddleware{"second", &order},
	)

	req := httptest.NewRequest(http.MethodGet, "http://api.test/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestRateLimiter_RespectsContext(t *testing.T) {
	var got *http.Request
	rl := NewRateLimiter(0.001, 1)
	rt := rl.Apply(captureTransport(&got))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("first request should use the burst, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := rt.RoundTrip(req.WithContext(ctx)); err == nil {
		t.Fatal("expected rate limit wait to fail for an exhausted bucket")
	}
}
