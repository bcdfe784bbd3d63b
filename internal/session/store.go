// Package session holds the single opaque credential of an authenticated
// device session and persists it through a pluggable Store.
package session

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNoSession      = errors.New("no session stored")
	ErrEmptyToken     = errors.New("session token is empty")
	ErrCorruptSession = errors.New("stored session is unreadable")
)

// Store persists the session token. Load returns ErrNoSession when nothing is
// stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the token for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *MemoryStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
