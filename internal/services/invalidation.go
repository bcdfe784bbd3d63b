package services

import (
	"context"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/logging"
)

// Mutation names a server-side write.
type Mutation string

const (
	MutationLogin         Mutation = "login"
	MutationSignup        Mutation = "signup"
	MutationLogout        Mutation = "logout"
	MutationUpdateProfile Mutation = "update-profile"
	MutationUpdatePrivacy Mutation = "update-privacy"
	MutationUploadAvatar  Mutation = "upload-avatar"
	MutationFollow        Mutation = "follow"
	MutationUnfollow      Mutation = "unfollow"
	MutationSendRequest   Mutation = "send-friend-request"
	MutationAcceptRequest Mutation = "accept-friend-request"
	MutationRejectRequest Mutation = "reject-friend-request"
)

var invalidationTable = map[Mutation][]cache.Label{
	MutationLogin:         {cache.LabelAuth},
	MutationSignup:        {cache.LabelAuth},
	MutationLogout:        {cache.LabelAuth, cache.LabelMe, cache.LabelUserProfile},
	MutationUpdateProfile: {cache.LabelMe, cache.LabelUserProfile},
	MutationUpdatePrivacy: {cache.LabelMe, cache.LabelUserProfile},
	MutationUploadAvatar:  {cache.LabelMe, cache.LabelUserProfile},
	MutationFollow:        {cache.LabelFollowers, cache.LabelFollowing, cache.LabelUserProfile, cache.LabelFriendRequests},
	MutationUnfollow:      {cache.LabelFollowers, cache.LabelFollowing, cache.LabelUserProfile, cache.LabelFriendRequests},
	MutationSendRequest:   {cache.LabelFriendRequests},
	MutationAcceptRequest: {cache.LabelFriendRequests, cache.LabelFollowers, cache.LabelFollowing},
	MutationRejectRequest: {cache.LabelFriendRequests},
}

// LabelsFor returns the labels a successful mutation invalidates.
func LabelsFor(m Mutation) []cache.Label {
	return append([]cache.Label(nil), invalidationTable[m]...)
}

func invalidate(c *cache.Cache, m Mutation) {
	n := c.Invalidate(LabelsFor(m)...)
	logging.Debug("Cache invalidated", map[string]interface{}{
		"mutation": string(m),
		"entries":  n,
	})
}

// runMutation calls fn and applies the invalidation table only if it
// succeeds. Failures come back as *MutationError.
func runMutation[T any](ctx context.Context, c *cache.Cache, m Mutation, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, &MutationError{Mutation: m, Err: translate(err)}
	}
	invalidate(c, m)
	return v, nil
}
