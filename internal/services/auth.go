package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/logging"
	"github.com/HammerMeetNail/socialsync/internal/models"
	"github.com/HammerMeetNail/socialsync/internal/session"
)

var meKey = cache.KeyFor("me")

var meLabels = []cache.Label{cache.LabelMe, cache.LabelAuth}

type AuthService struct {
	api     AuthAPI
	session *session.Manager
	cache   *cache.Cache
}

func NewAuthService(a AuthAPI, sess *session.Manager, c *cache.Cache) *AuthService {
	return &AuthService{api: a, session: sess, cache: c}
}

func (s *AuthService) IsAuthenticated() bool {
	_, ok := s.session.Get()
	return ok
}

func (s *AuthService) Login(ctx context.Context, params models.LoginParams) (models.User, error) {
	if err := validateInput(params); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			vErr.Message = "Both fields are required"
		}
		return models.User{}, err
	}

	resp, err := runMutation(ctx, s.cache, MutationLogin, func(ctx context.Context) (models.AuthResponse, error) {
		resp, err := s.api.Login(ctx, params)
		if errors.Is(err, api.ErrBadRequest) {
			return resp, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return resp, err
	})
	if err != nil {
		return models.User{}, err
	}
	return s.establish(ctx, resp)
}

func (s *AuthService) Signup(ctx context.Context, params models.SignupParams) (models.User, error) {
	if err := validateInput(params); err != nil {
		return models.User{}, err
	}

	resp, err := runMutation(ctx, s.cache, MutationSignup, func(ctx context.Context) (models.AuthResponse, error) {
		return s.api.Signup(ctx, params)
	})
	if err != nil {
		return models.User{}, err
	}
	return s.establish(ctx, resp)
}

func (s *AuthService) establish(ctx context.Context, resp models.AuthResponse) (models.User, error) {
	if resp.SessionID == "" {
		return models.User{}, fmt.Errorf("%w: server returned no session", ErrAuthentication)
	}
	if err := s.session.Set(ctx, resp.SessionID); err != nil {
		return models.User{}, fmt.Errorf("storing session: %w", err)
	}
	if resp.User.ID != 0 {
		s.cache.Put(meKey, resp.User, meLabels)
	}
	logging.Info("Signed in", map[string]interface{}{
		"user_id":  resp.User.ID,
		"username": resp.User.Username,
	})
	return resp.User, nil
}

// Logout tells the server best-effort, then clears the local session and
// invalidates self-identified cache entries whether or not the server call
// succeeded.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		logging.Warn("Server logout failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	err := s.session.Clear(ctx)
	invalidate(s.cache, MutationLogout)
	return err
}

// Me returns the authenticated user. Without a session it fails with
// ErrAuthentication and sends nothing.
func (s *AuthService) Me(ctx context.Context) (models.User, error) {
	if !s.IsAuthenticated() {
		return models.User{}, ErrAuthentication
	}
	u, err := cache.Fetch(ctx, s.cache, meKey, meLabels, s.api.Me)
	if err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}
