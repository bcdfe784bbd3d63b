package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Feed returns posts by the caller and the users they follow, newest first.
func (c *Client) Feed(ctx context.Context, page, limit int) (models.PostPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "posts/feed/", pageQuery(page, limit), nil, &raw); err != nil {
		return models.PostPage{}, err
	}
	return decodePostPage(raw, page)
}

// UserPosts returns a user's posts. userID 0 means the caller's own posts.
func (c *Client) UserPosts(ctx context.Context, userID int64, limit int) (models.PostPage, error) {
	p := "posts/my-posts/"
	if userID > 0 {
		p = "posts/user/" + strconv.FormatInt(userID, 10) + "/"
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, p, pageQuery(0, limit), nil, &raw); err != nil {
		return models.PostPage{}, err
	}
	return decodePostPage(raw, 1)
}
