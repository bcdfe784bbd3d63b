package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HammerMeetNail/socialsync/internal/logging"
)

func statusTransport(status int) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		rec.WriteHeader(status)
		return rec.Result(), nil
	})
}

func TestRequestLogger_LogsErrorWithQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New().SetOutput(&buf).SetLevel(logging.LevelDebug)

	rt := NewRequestLogger(logger).Apply(statusTransport(http.StatusInternalServerError))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/posts/feed/?page=1", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry logging.LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.Level != logging.LevelError.String() {
		t.Fatalf("expected ERROR level, got %s", entry.Level)
	}
	if entry.Fields["query"] != "page=1" {
		t.Fatalf("expected query field, got %v", entry.Fields["query"])
	}
}

func TestRequestLogger_LogsWarnWithoutQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New().SetOutput(&buf).SetLevel(logging.LevelDebug)

	rt := NewRequestLogger(logger).Apply(statusTransport(http.StatusNotFound))

	req := httptest.NewRequest(http.MethodGet, "http://api.test/profiles/missing/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry logging.LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.Level != logging.LevelWarn.String() {
		t.Fatalf("expected WARN level, got %s", entry.Level)
	}
	if _, ok := entry.Fields["query"]; ok {
		t.Fatal("did not expect query field for empty query string")
	}
}

func TestRequestLogger_LogsTransportError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New().SetOutput(&buf).SetLevel(logging.LevelDebug)

	boom := errors.New("connection reset")
	rt := NewRequestLogger(logger).Apply(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, boom
	}))

	req := httptest.NewRequest(http.MethodPost, "http://api.test/followers/3/follow/", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}

	var entry logging.LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.Level != logging.LevelError.String() || entry.Fields["error"] != "connection reset" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestRequestLogger_SuccessIsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New().SetOutput(&buf).SetLevel(logging.LevelInfo)

	rt := NewRequestLogger(logger).Apply(statusTransport(http.StatusOK))
	req := httptest.NewRequest(http.MethodGet, "http://api.test/auth/me/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected debug entry to be filtered at info level, got %s", buf.String())
	}
}
