package services

import (
	"context"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/models"
)

// The request lists belong to the signed-in user, so they also carry Auth.
var requestLabels = []cache.Label{cache.LabelFriendRequests, cache.LabelAuth}

type FriendRequestService struct {
	api   FriendRequestAPI
	cache *cache.Cache
}

func NewFriendRequestService(a FriendRequestAPI, c *cache.Cache) *FriendRequestService {
	return &FriendRequestService{api: a, cache: c}
}

func (s *FriendRequestService) Send(ctx context.Context, receiverID int64) (models.FriendRequest, error) {
	return runMutation(ctx, s.cache, MutationSendRequest, func(ctx context.Context) (models.FriendRequest, error) {
		return s.api.SendFriendRequest(ctx, receiverID)
	})
}

// Accept approves a received request; the backend makes the follow mutual.
func (s *FriendRequestService) Accept(ctx context.Context, requestID int64) (models.RequestDecision, error) {
	return runMutation(ctx, s.cache, MutationAcceptRequest, func(ctx context.Context) (models.RequestDecision, error) {
		return s.api.AcceptFriendRequest(ctx, requestID)
	})
}

func (s *FriendRequestService) Reject(ctx context.Context, requestID int64) (models.RequestDecision, error) {
	return runMutation(ctx, s.cache, MutationRejectRequest, func(ctx context.Context) (models.RequestDecision, error) {
		return s.api.RejectFriendRequest(ctx, requestID)
	})
}

// Pending lists requests the caller has received and not answered.
func (s *FriendRequestService) Pending(ctx context.Context) ([]models.FriendRequest, error) {
	reqs, err := cache.Fetch(ctx, s.cache, cache.KeyFor("requests", "pending"), requestLabels, s.api.PendingRequests)
	return reqs, translate(err)
}

// Sent lists the caller's own unanswered requests.
func (s *FriendRequestService) Sent(ctx context.Context) ([]models.FriendRequest, error) {
	reqs, err := cache.Fetch(ctx, s.cache, cache.KeyFor("requests", "sent"), requestLabels, s.api.SentRequests)
	return reqs, translate(err)
}

func (s *FriendRequestService) Friends(ctx context.Context) ([]models.User, error) {
	users, err := cache.Fetch(ctx, s.cache, cache.KeyFor("requests", "friends"), requestLabels, s.api.Friends)
	return users, translate(err)
}
