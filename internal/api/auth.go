package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

type authEnvelope struct {
	Message   string   `json:"message"`
	SessionID string   `json:"session_id"`
	User      wireUser `json:"user"`
}

func (e authEnvelope) toModel() models.AuthResponse {
	return models.AuthResponse{
		Message:   e.Message,
		SessionID: e.SessionID,
		User:      e.User.toModel(),
	}
}

func (c *Client) Login(ctx context.Context, params models.LoginParams) (models.AuthResponse, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, "auth/login/", nil, params, &env); err != nil {
		return models.AuthResponse{}, err
	}
	return env.toModel(), nil
}

func (c *Client) Signup(ctx context.Context, params models.SignupParams) (models.AuthResponse, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, "auth/signup/", nil, params, &env); err != nil {
		return models.AuthResponse{}, err
	}
	return env.toModel(), nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "auth/logout/", nil, struct{}{}, nil)
}

// Me returns the authenticated user. The backend wraps it as {message, user};
// a bare user object is accepted too.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "auth/me/", nil, nil, &raw); err != nil {
		return models.User{}, err
	}
	var env struct {
		User *wireUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.User != nil {
		return env.User.toModel(), nil
	}
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.User{}, err
	}
	return w.toModel(), nil
}
