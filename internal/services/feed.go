package services

import (
	"context"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/models"
)

const DefaultPageSize = 10

type FeedService struct {
	api   FeedAPI
	cache *cache.Cache
}

func NewFeedService(a FeedAPI, c *cache.Cache) *FeedService {
	return &FeedService{api: a, cache: c}
}

func (s *FeedService) Feed(ctx context.Context, page, limit int) (models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	p, err := cache.Fetch(ctx, s.cache, cache.KeyFor("posts:feed", page, limit), []cache.Label{cache.LabelPosts, cache.LabelAuth}, func(ctx context.Context) (models.PostPage, error) {
		return s.api.Feed(ctx, page, limit)
	})
	if err != nil {
		return models.PostPage{}, translate(err)
	}
	return p, nil
}

// UserPosts returns a user's posts; userID 0 means the caller.
func (s *FeedService) UserPosts(ctx context.Context, userID int64, limit int) (models.PostPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	key := cache.KeyFor("posts:user", userID, limit)
	labels := []cache.Label{cache.LabelPosts, cache.LabelUserProfile}
	if userID == 0 {
		labels = append(labels, cache.LabelAuth)
	}
	p, err := cache.Fetch(ctx, s.cache, key, labels, func(ctx context.Context) (models.PostPage, error) {
		return s.api.UserPosts(ctx, userID, limit)
	})
	if err != nil {
		return models.PostPage{}, translate(err)
	}
	return p, nil
}
