package services

import (
	"context"
	"strings"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/models"
)

const (
	MinSearchLength  = 2
	DefaultSearchTTL = time.Minute
)

type SearchService struct {
	api   SearchAPI
	cache *cache.Cache
	ttl   time.Duration
}

func NewSearchService(a SearchAPI, c *cache.Cache, ttl time.Duration) *SearchService {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	return &SearchService{api: a, cache: c, ttl: ttl}
}

// Search finds users by username or full name. Queries shorter than two
// characters return nothing without a request.
func (s *SearchService) Search(ctx context.Context, query string) ([]models.User, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < MinSearchLength {
		return []models.User{}, nil
	}
	key := cache.KeyFor("search", strings.ToLower(q))
	users, err := cache.Fetch(ctx, s.cache, key, []cache.Label{cache.LabelSearch}, func(ctx context.Context) ([]models.User, error) {
		return s.api.SearchUsers(ctx, q)
	}, cache.WithTTL(s.ttl))
	if err != nil {
		return nil, translate(err)
	}
	return users, nil
}
