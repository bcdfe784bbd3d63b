package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HammerMeetNail/socialsync/internal/api"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrActionInFlight = errors.New("action already in progress")
)

// ValidationError reports client-side input problems found before any
// network call. Fields maps the JSON field name to its message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// MutationError wraps a failed mutation. Nothing was invalidated and any
// optimistic state was rolled back.
type MutationError struct {
	Mutation Mutation
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Mutation, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// translate maps transport-level API errors onto service sentinels while
// keeping the original in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden):
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case errors.Is(err, api.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// UserMessage picks the message to show for err: a validation message, then
// the server's own text, then fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	if errors.Is(err, ErrActionInFlight) {
		return "Please wait for the previous action to finish"
	}
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return "Network error. Please check your connection."
	}
	return fallback
}
