package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

// The backend serializes a user as {id, username, email, profile:{...}} but
// profile endpoints return the profile row with the user nested under "user"
// or flattened alongside. Everything below folds those into models types.

type wireProfileFields struct {
	FullName   string  `json:"full_name"`
	Bio        string  `json:"bio"`
	ProfilePic *string `json:"profile_pic"`
	IsPrivate  bool    `json:"is_private"`
}

type wireUser struct {
	ID         int64              `json:"id"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	FullName   string             `json:"full_name"`
	Bio        string             `json:"bio"`
	ProfilePic *string            `json:"profile_pic"`
	IsPrivate  *bool              `json:"is_private"`
	Profile    *wireProfileFields `json:"profile"`
}

func (w wireUser) toModel() models.User {
	u := models.User{
		ID:       w.ID,
		Username: w.Username,
		Email:    w.Email,
		FullName: w.FullName,
		Bio:      w.Bio,
	}
	if w.ProfilePic != nil {
		u.ProfilePic = *w.ProfilePic
	}
	if w.IsPrivate != nil {
		u.IsPrivate = *w.IsPrivate
	}
	if p := w.Profile; p != nil {
		if u.FullName == "" {
			u.FullName = p.FullName
		}
		if u.Bio == "" {
			u.Bio = p.Bio
		}
		if u.ProfilePic == "" && p.ProfilePic != nil {
			u.ProfilePic = *p.ProfilePic
		}
		if w.IsPrivate == nil {
			u.IsPrivate = p.IsPrivate
		}
	}
	return u
}

type wireProfile struct {
	wireUser
	User           *wireUser `json:"user"`
	PostsCount     *int      `json:"posts_count"`
	FollowersCount *int      `json:"followers_count"`
	FollowingCount *int      `json:"following_count"`
	IsFollowing    *bool     `json:"is_following"`
	RequestSent    *bool     `json:"request_sent"`
}

// ProfileResult is a normalized profile plus which counters the backend
// actually sent.
type ProfileResult struct {
	Profile           models.Profile
	HasPostsCount     bool
	HasFollowersCount bool
	HasFollowingCount bool
}

func (w wireProfile) toResult() ProfileResult {
	flat := w.wireUser.toModel()
	u := flat
	if w.User != nil {
		u = w.User.toModel()
		// Profile-row fields sit beside the nested user.
		if flat.FullName != "" {
			u.FullName = flat.FullName
		}
		if flat.Bio != "" {
			u.Bio = flat.Bio
		}
		if flat.ProfilePic != "" {
			u.ProfilePic = flat.ProfilePic
		}
		if w.wireUser.IsPrivate != nil {
			u.IsPrivate = *w.wireUser.IsPrivate
		}
		if u.ID == 0 {
			u.ID = flat.ID
		}
	}

	res := ProfileResult{
		Profile: models.Profile{
			User:        u,
			IsFollowing: w.IsFollowing,
			RequestSent: w.RequestSent,
		},
	}
	if w.PostsCount != nil {
		res.Profile.PostsCount = *w.PostsCount
		res.HasPostsCount = true
	}
	if w.FollowersCount != nil {
		res.Profile.FollowersCount = *w.FollowersCount
		res.HasFollowersCount = true
	}
	if w.FollowingCount != nil {
		res.Profile.FollowingCount = *w.FollowingCount
		res.HasFollowingCount = true
	}
	return res
}

func decodeProfile(data []byte) (ProfileResult, error) {
	var w wireProfile
	if err := json.Unmarshal(data, &w); err != nil {
		return ProfileResult{}, fmt.Errorf("decoding profile: %w", err)
	}
	return w.toResult(), nil
}

// decodeUsers accepts a bare array or a paginated {results: [...]} object.
func decodeUsers(data []byte) ([]models.User, error) {
	var wire []wireUser
	if err := decodeList(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	users := make([]models.User, 0, len(wire))
	for _, w := range wire {
		users = append(users, w.toModel())
	}
	return users, nil
}

type wireFriendRequest struct {
	ID        int64     `json:"id"`
	Sender    wireUser  `json:"sender"`
	Receiver  wireUser  `json:"receiver"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (w wireFriendRequest) toModel() models.FriendRequest {
	return models.FriendRequest{
		ID:        w.ID,
		Sender:    w.Sender.toModel(),
		Receiver:  w.Receiver.toModel(),
		Status:    models.FriendRequestStatus(w.Status),
		CreatedAt: w.CreatedAt,
	}
}

func decodeFriendRequests(data []byte) ([]models.FriendRequest, error) {
	var wire []wireFriendRequest
	if err := decodeList(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding friend requests: %w", err)
	}
	out := make([]models.FriendRequest, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toModel())
	}
	return out, nil
}

type wirePost struct {
	ID            uuid.UUID `json:"id"`
	User          wireUser  `json:"user"`
	Caption       string    `json:"caption"`
	MediaURLs     []string  `json:"media_urls"`
	MediaURL      string    `json:"media_url"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (w wirePost) toModel() models.Post {
	media := w.MediaURLs
	if len(media) == 0 && w.MediaURL != "" {
		media = []string{w.MediaURL}
	}
	return models.Post{
		ID:            w.ID,
		User:          w.User.toModel(),
		Caption:       w.Caption,
		MediaURLs:     media,
		LikesCount:    w.LikesCount,
		CommentsCount: w.CommentsCount,
		CreatedAt:     w.CreatedAt,
	}
}

type wirePostPage struct {
	Count    *int       `json:"count"`
	Next     *string    `json:"next"`
	Results  []wirePost `json:"results"`
	Posts    []wirePost `json:"posts"`
	NextPage *int       `json:"nextPage"`
}

// decodePostPage accepts {count,next,previous,results}, {posts,nextPage} or
// a bare array. page is the page that was requested.
func decodePostPage(data []byte, page int) (models.PostPage, error) {
	trimmed := bytes.TrimSpace(data)
	var w wirePostPage
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &w.Results); err != nil {
			return models.PostPage{}, fmt.Errorf("decoding posts: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &w); err != nil {
		return models.PostPage{}, fmt.Errorf("decoding posts: %w", err)
	}

	wire := w.Results
	if wire == nil {
		wire = w.Posts
	}
	out := models.PostPage{Posts: make([]models.Post, 0, len(wire))}
	for _, p := range wire {
		out.Posts = append(out.Posts, p.toModel())
	}

	if w.Count != nil {
		out.Count = *w.Count
	} else {
		out.Count = len(out.Posts)
	}

	switch {
	case w.NextPage != nil:
		out.NextPage = *w.NextPage
	case w.Next != nil && *w.Next != "":
		out.NextPage = nextPageFromURL(*w.Next, page)
	}
	return out, nil
}

func nextPageFromURL(next string, current int) int {
	u, err := url.Parse(next)
	if err == nil {
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
			return n
		}
	}
	if current < 1 {
		current = 1
	}
	return current + 1
}

func decodeList(data []byte, dst any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dst)
	}
	var page struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	if len(page.Results) == 0 || string(page.Results) == "null" {
		return nil
	}
	return json.Unmarshal(page.Results, dst)
}
