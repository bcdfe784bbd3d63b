package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
)

// Error is a non-2xx response. Message is the server's own text when it sent
// one.
type Error struct {
	Status  int
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s: %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newError(status int, path string, body []byte) *Error {
	return &Error{Status: status, Path: path, Message: extractMessage(body)}
}

// extractMessage reads {"error"}, {"message"} or {"detail"}, in that order.
func extractMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		return strings.TrimSpace(string(payload.Error))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Detail
}

// ServerMessage returns the server-provided message carried by err, if any.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
