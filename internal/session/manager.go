package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type EventKind int

const (
	EventLoggedIn EventKind = iota + 1
	EventLoggedOut
	EventRestored
)

func (k EventKind) String() string {
	switch k {
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventRestored:
		return "restored"
	}
	return "unknown"
}

// Event is delivered to subscribers whenever the session changes.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Manager keeps the current token in memory so request code can read it
// synchronously, and mirrors every change to the Store.
type Manager struct {
	store Store
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	listeners map[int]func(Event)
	nextID    int
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		now:       time.Now,
		listeners: make(map[int]func(Event)),
	}
}

// Restore loads a previously persisted token. A missing token is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if errors.Is(err, ErrCorruptSession) {
		_ = m.store.Delete(ctx)
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.emit(EventRestored)
	return nil
}

// Get returns the current token; ok is false when unauthenticated.
func (m *Manager) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

// Token returns the current token or "".
func (m *Manager) Token() string {
	token, _ := m.Get()
	return token
}

func (m *Manager) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := m.store.Save(ctx, token); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.emit(EventLoggedIn)
	return nil
}

// Clear forgets the token. The in-memory copy is always dropped and the
// logout event always fires; a persistence error is still returned.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()

	err := m.store.Delete(ctx)
	m.emit(EventLoggedOut)
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Subscribe registers fn for session events and returns an unsubscribe func.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(kind EventKind) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	ev := Event{Kind: kind, At: m.now()}
	for _, fn := range fns {
		fn(ev)
	}
}
