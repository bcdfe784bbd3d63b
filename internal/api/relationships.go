package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

func followersPath(userID int64, action string) string {
	return "followers/" + strconv.FormatInt(userID, 10) + "/" + action + "/"
}

func (c *Client) Followers(ctx context.Context, userID int64) ([]models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, followersPath(userID, "followers"), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeUsers(raw)
}

func (c *Client) Following(ctx context.Context, userID int64) ([]models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, followersPath(userID, "following"), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeUsers(raw)
}

// Follow follows a public user or sends a request to a private one. The result
// reports which happened.
func (c *Client) Follow(ctx context.Context, userID int64) (models.FollowResult, error) {
	var out models.FollowResult
	if err := c.do(ctx, http.MethodPost, followersPath(userID, "follow"), nil, struct{}{}, &out); err != nil {
		return models.FollowResult{}, err
	}
	return out, nil
}

// Unfollow removes the follow edge and any request the caller sent the user.
func (c *Client) Unfollow(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, followersPath(userID, "unfollow"), nil, struct{}{}, nil)
}

func (c *Client) SendFriendRequest(ctx context.Context, receiverID int64) (models.FriendRequest, error) {
	var w wireFriendRequest
	body := map[string]int64{"receiver": receiverID}
	if err := c.do(ctx, http.MethodPost, "friend-requests/", nil, body, &w); err != nil {
		return models.FriendRequest{}, err
	}
	return w.toModel(), nil
}

func (c *Client) AcceptFriendRequest(ctx context.Context, requestID int64) (models.RequestDecision, error) {
	return c.decide(ctx, requestID, "accept", models.FriendRequestStatusAccepted)
}

func (c *Client) RejectFriendRequest(ctx context.Context, requestID int64) (models.RequestDecision, error) {
	return c.decide(ctx, requestID, "reject", models.FriendRequestStatusRejected)
}

func (c *Client) decide(ctx context.Context, requestID int64, action string, want models.FriendRequestStatus) (models.RequestDecision, error) {
	var out models.RequestDecision
	p := "friend-requests/" + strconv.FormatInt(requestID, 10) + "/" + action + "/"
	if err := c.do(ctx, http.MethodPost, p, nil, struct{}{}, &out); err != nil {
		return models.RequestDecision{}, err
	}
	if out.Status == "" {
		out.Status = want
	}
	return out, nil
}

// PendingRequests lists pending requests the caller received.
func (c *Client) PendingRequests(ctx context.Context) ([]models.FriendRequest, error) {
	return c.listRequests(ctx, "friend-requests/pending/")
}

// SentRequests lists pending requests the caller sent.
func (c *Client) SentRequests(ctx context.Context) ([]models.FriendRequest, error) {
	return c.listRequests(ctx, "friend-requests/sent/")
}

func (c *Client) listRequests(ctx context.Context, p string) ([]models.FriendRequest, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeFriendRequests(raw)
}

// Friends lists users with an accepted request in either direction.
func (c *Client) Friends(ctx context.Context) ([]models.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "friend-requests/friends/", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeUsers(raw)
}
