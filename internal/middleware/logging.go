package middleware

import (
	"net/http"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/logging"
)

// RequestLogger logs one entry per request: errors for transport failures and
// 5xx, warnings for 4xx, debug otherwise.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Apply(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if r.URL.RawQuery != "" {
			fields["query"] = r.URL.RawQuery
		}
		if id := r.Header.Get(RequestIDHeader); id != "" {
			fields["request_id"] = id
		}

		if err != nil {
			fields["error"] = err.Error()
			rl.logger.Error("API request failed", fields)
			return resp, err
		}

		fields["status"] = resp.StatusCode
		switch {
		case resp.StatusCode >= 500:
			rl.logger.Error("API request", fields)
		case resp.StatusCode >= 400:
			rl.logger.Warn("API request", fields)
		default:
			rl.logger.Debug("API request", fields)
		}
		return resp, nil
	})
}
