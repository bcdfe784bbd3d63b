package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/api"
	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/models"
)

// ProfileObserver is told about every profile fetched from the server, with
// the time the fetch began.
type ProfileObserver func(p models.Profile, started time.Time)

type AvatarOptions struct {
	MaxBytes int
	Size     int
}

type ProfileService struct {
	api    ProfileAPI
	cache  *cache.Cache
	avatar AvatarOptions

	mu        sync.RWMutex
	observers []ProfileObserver
}

func NewProfileService(a ProfileAPI, c *cache.Cache, avatar AvatarOptions) *ProfileService {
	if avatar.Size <= 0 {
		avatar.Size = DefaultAvatarSize
	}
	return &ProfileService{api: a, cache: c, avatar: avatar}
}

func (s *ProfileService) OnFetch(fn ProfileObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *ProfileService) notify(p models.Profile, started time.Time) {
	s.mu.RLock()
	observers := append([]ProfileObserver(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(p, started)
	}
}

func profileKey(username string) cache.Key {
	return cache.KeyFor("profile", username)
}

// GetProfile returns the profile for username from cache, fetching it when
// absent or stale. Missing follower/following counts are filled from the
// follower lists.
func (s *ProfileService) GetProfile(ctx context.Context, username string) (models.Profile, error) {
	p, err := cache.Fetch(ctx, s.cache, profileKey(username), []cache.Label{cache.LabelUserProfile}, func(ctx context.Context) (models.Profile, error) {
		return s.load(ctx, func(ctx context.Context) (api.ProfileResult, error) {
			return s.api.ProfileByUsername(ctx, username)
		})
	})
	if err != nil {
		return models.Profile{}, translate(err)
	}
	return p, nil
}

// RefreshProfile drops the cached profile and fetches it again.
func (s *ProfileService) RefreshProfile(ctx context.Context, username string) (models.Profile, error) {
	s.cache.Remove(profileKey(username))
	return s.GetProfile(ctx, username)
}

func (s *ProfileService) GetUser(ctx context.Context, id int64) (models.Profile, error) {
	p, err := cache.Fetch(ctx, s.cache, cache.KeyFor("user", id), []cache.Label{cache.LabelUserProfile}, func(ctx context.Context) (models.Profile, error) {
		return s.load(ctx, func(ctx context.Context) (api.ProfileResult, error) {
			return s.api.UserByID(ctx, id)
		})
	})
	if err != nil {
		return models.Profile{}, translate(err)
	}
	return p, nil
}

func (s *ProfileService) load(ctx context.Context, fetch func(context.Context) (api.ProfileResult, error)) (models.Profile, error) {
	started := time.Now()
	res, err := fetch(ctx)
	if err != nil {
		return models.Profile{}, err
	}

	p := res.Profile
	if !res.HasFollowersCount {
		followers, err := s.Followers(ctx, p.ID)
		if err != nil {
			return models.Profile{}, fmt.Errorf("counting followers: %w", err)
		}
		p.FollowersCount = len(followers)
	}
	if !res.HasFollowingCount {
		following, err := s.Following(ctx, p.ID)
		if err != nil {
			return models.Profile{}, fmt.Errorf("counting following: %w", err)
		}
		p.FollowingCount = len(following)
	}

	s.notify(p, started)
	return p, nil
}

func (s *ProfileService) Followers(ctx context.Context, userID int64) ([]models.User, error) {
	users, err := cache.Fetch(ctx, s.cache, cache.KeyFor("followers", userID), []cache.Label{cache.LabelFollowers}, func(ctx context.Context) ([]models.User, error) {
		return s.api.Followers(ctx, userID)
	})
	return users, translate(err)
}

func (s *ProfileService) Following(ctx context.Context, userID int64) ([]models.User, error) {
	users, err := cache.Fetch(ctx, s.cache, cache.KeyFor("following", userID), []cache.Label{cache.LabelFollowing}, func(ctx context.Context) ([]models.User, error) {
		return s.api.Following(ctx, userID)
	})
	return users, translate(err)
}

func (s *ProfileService) UpdateSelf(ctx context.Context, update models.ProfileUpdate) (models.User, error) {
	if update.IsEmpty() {
		return models.User{}, &ValidationError{Message: "Nothing to update"}
	}
	if err := validateInput(update); err != nil {
		return models.User{}, err
	}
	return runMutation(ctx, s.cache, MutationUpdateProfile, func(ctx context.Context) (models.User, error) {
		return s.api.UpdateProfile(ctx, update)
	})
}

func (s *ProfileService) UpdatePrivacy(ctx context.Context, isPrivate bool) (bool, error) {
	return runMutation(ctx, s.cache, MutationUpdatePrivacy, func(ctx context.Context) (bool, error) {
		return s.api.UpdatePrivacy(ctx, isPrivate)
	})
}

// UploadAvatar checks, squares and re-encodes the image, then uploads it.
func (s *ProfileService) UploadAvatar(ctx context.Context, filename string, data []byte) (models.User, error) {
	if len(data) == 0 {
		return models.User{}, &ValidationError{Fields: map[string]string{api.AvatarField: "Please choose an image"}}
	}
	if s.avatar.MaxBytes > 0 && len(data) > s.avatar.MaxBytes {
		return models.User{}, &ValidationError{Fields: map[string]string{
			api.AvatarField: fmt.Sprintf("Image must be at most %d bytes", s.avatar.MaxBytes),
		}}
	}
	encoded, err := PrepareAvatar(data, s.avatar.Size)
	if err != nil {
		return models.User{}, &ValidationError{Fields: map[string]string{api.AvatarField: "Unsupported or corrupt image"}}
	}

	return runMutation(ctx, s.cache, MutationUploadAvatar, func(ctx context.Context) (models.User, error) {
		return s.api.UploadAvatar(ctx, avatarFilename(filename), "image/jpeg", encoded)
	})
}
