package middleware

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests with a token bucket so bursts of reads
// (list refetches after an invalidation) do not hammer the backend.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns nil when perSecond <= 0, which Chain skips.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (rl *RateLimiter) Apply(next http.RoundTripper) http.RoundTripper {
	if rl == nil {
		return next
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if err := rl.limiter.Wait(r.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		return next.RoundTrip(r)
	})
}
