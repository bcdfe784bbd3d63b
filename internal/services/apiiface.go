package services

import (
	"context"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/models"
)

// Narrow views of *api.Client so each service can be tested with a fake.

type AuthAPI interface {
	Login(ctx context.Context, params models.LoginParams) (models.AuthResponse, error)
	Signup(ctx context.Context, params models.SignupParams) (models.AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.User, error)
}

type ProfileAPI interface {
	ProfileByUsername(ctx context.Context, username string) (api.ProfileResult, error)
	UserByID(ctx context.Context, id int64) (api.ProfileResult, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.User, error)
	UpdatePrivacy(ctx context.Context, isPrivate bool) (bool, error)
	UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (models.User, error)
	Followers(ctx context.Context, userID int64) ([]models.User, error)
	Following(ctx context.Context, userID int64) ([]models.User, error)
}

type FollowAPI interface {
	Follow(ctx context.Context, userID int64) (models.FollowResult, error)
	Unfollow(ctx context.Context, userID int64) error
}

type FriendRequestAPI interface {
	SendFriendRequest(ctx context.Context, receiverID int64) (models.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, requestID int64) (models.RequestDecision, error)
	RejectFriendRequest(ctx context.Context, requestID int64) (models.RequestDecision, error)
	PendingRequests(ctx context.Context) ([]models.FriendRequest, error)
	SentRequests(ctx context.Context) ([]models.FriendRequest, error)
	Friends(ctx context.Context) ([]models.User, error)
}

type FeedAPI interface {
	Feed(ctx context.Context, page, limit int) (models.PostPage, error)
	UserPosts(ctx context.Context, userID int64, limit int) (models.PostPage, error)
}

type SearchAPI interface {
	SearchUsers(ctx context.Context, q string) ([]models.User, error)
}

var (
	_ AuthAPI          = (*api.Client)(nil)
	_ ProfileAPI       = (*api.Client)(nil)
	_ FollowAPI        = (*api.Client)(nil)
	_ FriendRequestAPI = (*api.Client)(nil)
	_ FeedAPI          = (*api.Client)(nil)
	_ SearchAPI        = (*api.Client)(nil)
)
