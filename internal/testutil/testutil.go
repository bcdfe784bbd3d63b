package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// NewTestRequestWithJSON creates a request with a JSON-encoded body.
func NewTestRequestWithJSON(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

// ParseJSONResponse decodes a JSON object body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("parsing JSON response %q: %v", body, err)
	}
	return out
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body %q)", want, rr.Code, rr.Body.String())
	}
}

func AssertJSONContains(t *testing.T, body []byte, key string, want interface{}) {
	t.Helper()
	got := ParseJSONResponse(t, body)
	if got[key] != want {
		t.Fatalf("expected %s=%v, got %v", key, want, got[key])
	}
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

func RandomEmail() string {
	return "user-" + uuid.NewString()[:8] + "@example.com"
}
