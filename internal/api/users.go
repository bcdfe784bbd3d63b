package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

const AvatarField = "profile_pic"

func (c *Client) ProfileByUsername(ctx context.Context, username string) (ProfileResult, error) {
	var raw json.RawMessage
	p := "profiles/" + url.PathEscape(username) + "/"
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &raw); err != nil {
		return ProfileResult{}, err
	}
	return decodeProfile(raw)
}

func (c *Client) UserByID(ctx context.Context, id int64) (ProfileResult, error) {
	var raw json.RawMessage
	p := "users/" + strconv.FormatInt(id, 10) + "/"
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &raw); err != nil {
		return ProfileResult{}, err
	}
	return decodeProfile(raw)
}

// UpdateProfile patches the caller's own profile and returns the stored values.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "profiles/", nil, update, &raw); err != nil {
		return models.User{}, err
	}
	return decodeUserish(raw)
}

func (c *Client) UpdatePrivacy(ctx context.Context, isPrivate bool) (bool, error) {
	var out struct {
		IsPrivate *bool `json:"is_private"`
	}
	body := map[string]bool{"is_private": isPrivate}
	if err := c.do(ctx, http.MethodPatch, "profiles/privacy/", nil, body, &out); err != nil {
		return false, err
	}
	if out.IsPrivate == nil {
		return isPrivate, nil
	}
	return *out.IsPrivate, nil
}

// UploadAvatar sends an already-encoded image as multipart field profile_pic.
func (c *Client) UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (models.User, error) {
	var raw json.RawMessage
	err := c.doMultipart(ctx, http.MethodPatch, "profiles/upload-picture/", AvatarField, path.Base(filename), contentType, data, &raw)
	if err != nil {
		return models.User{}, err
	}
	return decodeUserish(raw)
}

// SearchUsers returns users whose username or full name contains q.
func (c *Client) SearchUsers(ctx context.Context, q string) ([]models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "search/users/", url.Values{"q": {q}}, nil, &raw); err != nil {
		return nil, err
	}
	return decodeUsers(raw)
}

// decodeUserish reads a user, a {user} envelope or a profile row.
func decodeUserish(raw []byte) (models.User, error) {
	if len(raw) == 0 {
		return models.User{}, nil
	}
	res, err := decodeProfile(raw)
	if err != nil {
		return models.User{}, fmt.Errorf("decoding user: %w", err)
	}
	return res.Profile.User, nil
}
