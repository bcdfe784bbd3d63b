package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/middleware"
	"github.com/HammerMeetNail/socialsync/internal/models"
	"github.com/HammerMeetNail/socialsync/internal/session"
	"github.com/HammerMeetNail/socialsync/internal/testutil"
)

// stack is one signed-in device: its own session, cache and services over the
// shared fake backend.
type stack struct {
	backend *testutil.FakeBackend
	session *session.Manager
	cache   *cache.Cache
	svc     *Services
	me      models.User
}

func newStack(t *testing.T, b *testutil.FakeBackend) *stack {
	t.Helper()

	sess := session.NewManager(session.NewMemoryStore())
	hc := &http.Client{
		Timeout:   5 * time.Second,
		Transport: middleware.Chain(nil, middleware.NewRequestID(), middleware.NewSessionAuth(sess)),
	}
	client, err := api.NewClient(b.URL(), api.WithHTTPClient(hc))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	c := cache.New()
	svc := New(Dependencies{
		API:     client,
		Session: sess,
		Cache:   c,
		Avatar:  AvatarOptions{MaxBytes: 1 << 20, Size: 64},
	})
	t.Cleanup(svc.Close)
	return &stack{backend: b, session: sess, cache: c, svc: svc}
}

func (s *stack) login(t *testing.T, username, password string) {
	t.Helper()
	me, err := s.svc.Auth.Login(context.Background(), models.LoginParams{Username: username, Password: password})
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	s.me = me
}

func (s *stack) profile(t *testing.T, username string) models.Profile {
	t.Helper()
	p, err := s.svc.Profiles.GetProfile(context.Background(), username)
	if err != nil {
		t.Fatalf("GetProfile %s: %v", username, err)
	}
	return p
}
