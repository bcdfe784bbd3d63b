package services

import (
	"time"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/session"
)

type Dependencies struct {
	API       *api.Client
	Session   *session.Manager
	Cache     *cache.Cache
	Avatar    AvatarOptions
	SearchTTL time.Duration
}

// Services bundles every service over one API client, session and cache.
type Services struct {
	Auth     *AuthService
	Profiles *ProfileService
	Follows  *FollowReconciler
	Requests *FriendRequestService
	Feed     *FeedService
	Search   *SearchService

	stop func()
}

func New(d Dependencies) *Services {
	profiles := NewProfileService(d.API, d.Cache, d.Avatar)
	follows := NewFollowReconciler(d.API, d.Cache, profiles)

	return &Services{
		Auth:     NewAuthService(d.API, d.Session, d.Cache),
		Profiles: profiles,
		Follows:  follows,
		Requests: NewFriendRequestService(d.API, d.Cache),
		Feed:     NewFeedService(d.API, d.Cache),
		Search:   NewSearchService(d.API, d.Cache, d.SearchTTL),
		stop:     follows.Observe(profiles, d.Session),
	}
}

// Close detaches the session subscription.
func (s *Services) Close() {
	if s.stop != nil {
		s.stop()
	}
}
