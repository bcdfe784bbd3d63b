package services

import (
	"context"
	"sync"
	"time"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/logging"
	"github.com/HammerMeetNail/socialsync/internal/models"
	"github.com/HammerMeetNail/socialsync/internal/session"
)

// RelationshipView is the caller-visible follow state towards one user. It is
// authoritative except while InFlight, when it shows the optimistic outcome
// of the pending action.
type RelationshipView struct {
	Self           int64
	Target         int64
	Username       string
	State          models.Relationship
	FollowersCount int
	IsPrivate      bool
	InFlight       bool
}

func (v RelationshipView) ActionLabel() string {
	return v.State.ActionLabel(v.IsPrivate)
}

type viewKey struct {
	self, target int64
}

type viewState struct {
	view      RelationshipView
	settledAt time.Time
}

// ProfileRefresher re-reads a profile after a relationship mutation.
type ProfileRefresher interface {
	GetProfile(ctx context.Context, username string) (models.Profile, error)
}

// FollowReconciler owns the optimistic follow state for every (self, target)
// pair. Callers must never pass a target equal to self.
type FollowReconciler struct {
	api      FollowAPI
	cache    *cache.Cache
	profiles ProfileRefresher
	log      *logging.Logger
	now      func() time.Time

	mu    sync.Mutex
	views map[viewKey]*viewState
}

func NewFollowReconciler(a FollowAPI, c *cache.Cache, profiles ProfileRefresher) *FollowReconciler {
	return &FollowReconciler{
		api:      a,
		cache:    c,
		profiles: profiles,
		log:      logging.Default.WithField("component", "follow_reconciler"),
		now:      time.Now,
		views:    make(map[viewKey]*viewState),
	}
}

// Observe wires the reconciler to profile fetches and to session logout.
func (r *FollowReconciler) Observe(profiles *ProfileService, sess *session.Manager) (stop func()) {
	profiles.OnFetch(r.observe)
	return sess.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventLoggedOut {
			r.Reset()
		}
	})
}

func viewFromProfile(self int64, p models.Profile) RelationshipView {
	return RelationshipView{
		Self:           self,
		Target:         p.ID,
		Username:       p.Username,
		State:          models.DeriveRelationship(p),
		FollowersCount: p.FollowersCount,
		IsPrivate:      p.IsPrivate,
	}
}

// Sync derives the view for (self, p) from an authoritative profile. A view
// with an action in flight keeps its optimistic state.
func (r *FollowReconciler) Sync(self int64, p models.Profile) RelationshipView {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := viewKey{self, p.ID}
	st, ok := r.views[key]
	if !ok {
		st = &viewState{}
		r.views[key] = st
	} else if st.view.InFlight {
		return st.view
	}
	st.view = viewFromProfile(self, p)
	return st.view
}

// observe applies a fetched profile to existing views of its target. Fetches
// that began before the last settled action are ignored.
func (r *FollowReconciler) observe(p models.Profile, started time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, st := range r.views {
		if key.target != p.ID || st.view.InFlight || started.Before(st.settledAt) {
			continue
		}
		st.view = viewFromProfile(key.self, p)
	}
}

func (r *FollowReconciler) View(self, target int64) (RelationshipView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.views[viewKey{self, target}]
	if !ok {
		return RelationshipView{}, false
	}
	return st.view, true
}

// Reset drops every view.
func (r *FollowReconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = make(map[viewKey]*viewState)
}

// Toggle follows when not following, otherwise unfollows (which also cancels
// a pending request).
func (r *FollowReconciler) Toggle(ctx context.Context, self int64, target models.Profile) (RelationshipView, error) {
	view, ok := r.View(self, target.ID)
	if !ok {
		view = r.Sync(self, target)
	}
	if view.State == models.RelationshipNotFollowing {
		return r.Follow(ctx, self, target)
	}
	return r.Unfollow(ctx, self, target)
}

// Follow follows a public target or requests a private one. Following an
// already followed or requested target changes nothing.
func (r *FollowReconciler) Follow(ctx context.Context, self int64, target models.Profile) (RelationshipView, error) {
	prev, err := r.begin(self, target, func(v *RelationshipView) bool {
		if v.State != models.RelationshipNotFollowing {
			return false
		}
		if v.IsPrivate {
			v.State = models.RelationshipPending
		} else {
			v.State = models.RelationshipFollowing
			v.FollowersCount++
		}
		return true
	})
	if err != nil || !prev.InFlight {
		return prev, err
	}
	prev.InFlight = false

	res, err := runMutation(ctx, r.cache, MutationFollow, func(ctx context.Context) (models.FollowResult, error) {
		return r.api.Follow(ctx, target.ID)
	})
	if err != nil {
		return r.rollback(self, target.ID, prev, MutationFollow, err)
	}

	r.settle(self, target.ID, func(v *RelationshipView) {
		// The target went private since we last looked.
		if res.RequestSent && v.State == models.RelationshipFollowing {
			v.State = models.RelationshipPending
			v.FollowersCount = prev.FollowersCount
			v.IsPrivate = true
		}
	})
	return r.refresh(ctx, self, target)
}

// Unfollow removes a follow or cancels a pending request. Unfollowing a
// target that is neither followed nor requested changes nothing.
func (r *FollowReconciler) Unfollow(ctx context.Context, self int64, target models.Profile) (RelationshipView, error) {
	prev, err := r.begin(self, target, func(v *RelationshipView) bool {
		if v.State == models.RelationshipNotFollowing {
			return false
		}
		if v.State == models.RelationshipFollowing && v.FollowersCount > 0 {
			v.FollowersCount--
		}
		v.State = models.RelationshipNotFollowing
		return true
	})
	if err != nil || !prev.InFlight {
		return prev, err
	}
	prev.InFlight = false

	if _, err := runMutation(ctx, r.cache, MutationUnfollow, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.api.Unfollow(ctx, target.ID)
	}); err != nil {
		return r.rollback(self, target.ID, prev, MutationUnfollow, err)
	}

	r.settle(self, target.ID, nil)
	return r.refresh(ctx, self, target)
}

// CancelRequest withdraws a pending request; it is the unfollow operation.
func (r *FollowReconciler) CancelRequest(ctx context.Context, self int64, target models.Profile) (RelationshipView, error) {
	return r.Unfollow(ctx, self, target)
}

// begin applies the optimistic change and marks the pair in flight. It
// returns the pre-action view with InFlight set when the action should
// proceed, or the unchanged view when apply declined it.
func (r *FollowReconciler) begin(self int64, target models.Profile, apply func(*RelationshipView) bool) (RelationshipView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := viewKey{self, target.ID}
	st, ok := r.views[key]
	if !ok {
		st = &viewState{view: viewFromProfile(self, target)}
		r.views[key] = st
	}
	if st.view.InFlight {
		return st.view, ErrActionInFlight
	}

	prev := st.view
	next := st.view
	if !apply(&next) {
		return prev, nil
	}
	next.InFlight = true
	st.view = next

	prev.InFlight = true
	return prev, nil
}

func (r *FollowReconciler) rollback(self, target int64, prev RelationshipView, m Mutation, err error) (RelationshipView, error) {
	r.mu.Lock()
	if st, ok := r.views[viewKey{self, target}]; ok {
		st.view = prev
	}
	r.mu.Unlock()

	r.log.Warn("Relationship change rolled back", map[string]interface{}{
		"mutation": string(m),
		"target":   target,
		"error":    err.Error(),
	})
	return prev, err
}

func (r *FollowReconciler) settle(self, target int64, adjust func(*RelationshipView)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.views[viewKey{self, target}]
	if !ok {
		return
	}
	if adjust != nil {
		adjust(&st.view)
	}
	st.view.InFlight = false
	st.settledAt = r.now()
}

// refresh re-reads the target's profile; the fetch hook re-syncs the view.
// A failed refresh keeps the optimistic view, since the mutation succeeded.
func (r *FollowReconciler) refresh(ctx context.Context, self int64, target models.Profile) (RelationshipView, error) {
	if r.profiles != nil && target.Username != "" {
		if _, err := r.profiles.GetProfile(ctx, target.Username); err != nil {
			r.log.Warn("Profile refresh after relationship change failed", map[string]interface{}{
				"target": target.ID,
				"error":  err.Error(),
			})
		}
	}
	view, _ := r.View(self, target.ID)
	return view, nil
}
