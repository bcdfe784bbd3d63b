package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/HammerMeetNail/socialsync/internal/cache"
	"github.com/HammerMeetNail/socialsync/internal/models"
	"github.com/HammerMeetNail/socialsync/internal/testutil"
)

func TestScenarioA_FollowPublicTarget(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.AddUser("sam", "secret1", false)
	tessID := b.AddUser("tess", "secret1", false)
	other := b.AddUser("olga", "secret1", false)
	b.SetFollow(other, tessID, true)

	s := newStack(t, b)
	s.login(t, "sam", "secret1")
	ctx := context.Background()

	target := s.profile(t, "tess")
	if target.FollowersCount != 1 {
		t.Fatalf("expected 1 follower before, got %d", target.FollowersCount)
	}
	if _, err := s.svc.Profiles.Followers(ctx, tessID); err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if _, err := s.svc.Profiles.Following(ctx, s.me.ID); err != nil {
		t.Fatalf("Following: %v", err)
	}

	view, err := s.svc.Follows.Follow(ctx, s.me.ID, target)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if view.State != models.RelationshipFollowing || view.FollowersCount != 2 {
		t.Fatalf("expected following with 2 followers, got %+v", view)
	}
	if !b.IsFollowing(s.me.ID, tessID) {
		t.Fatal("expected backend follow edge")
	}
	if !s.cache.IsStale(cache.KeyFor("followers", tessID)) {
		t.Fatal("expected Followers to be invalidated")
	}
	if !s.cache.IsStale(cache.KeyFor("following", s.me.ID)) {
		t.Fatal("expected Following to be invalidated")
	}

	following, err := s.svc.Profiles.Following(ctx, s.me.ID)
	if err != nil || len(following) != 1 || following[0].ID != tessID {
		t.Fatalf("expected refetched following list with tess, got %v %v", following, err)
	}
}

func TestScenarioB_FollowPrivateTarget(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.AddUser("sam", "secret1", false)
	tessID := b.AddUser("tess", "secret1", true)

	s := newStack(t, b)
	s.login(t, "sam", "secret1")
	ctx := context.Background()

	target := s.profile(t, "tess")
	view, err := s.svc.Follows.Follow(ctx, s.me.ID, target)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if view.State != models.RelationshipPending || view.FollowersCount != 0 {
		t.Fatalf("expected pending with 0 followers, got %+v", view)
	}

	refreshed := s.profile(t, "tess")
	if models.DeriveRelationship(refreshed) != models.RelationshipPending {
		t.Fatalf("expected authoritative pending, got %+v", refreshed)
	}

	tess := newStack(t, b)
	tess.login(t, "tess", "secret1")
	pending, err := tess.svc.Requests.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Sender.ID != s.me.ID || pending[0].Receiver.ID != tessID {
		t.Fatalf("expected one pending request from sam, got %+v", pending)
	}

	sent, err := s.svc.Requests.Sent(ctx)
	if err != nil || len(sent) != 1 {
		t.Fatalf("expected one sent request, got %v %v", sent, err)
	}
}

func TestScenarioC_AcceptedRequestBecomesFollow(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.AddUser("sam", "secret1", false)
	tessID := b.AddUser("tess", "secret1", true)

	s := newStack(t, b)
	s.login(t, "sam", "secret1")
	ctx := context.Background()

	target := s.profile(t, "tess")
	if _, err := s.svc.Follows.Follow(ctx, s.me.ID, target); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	before := s.profile(t, "tess").FollowersCount

	// Sam's following list is cached before tess answers.
	if _, err := s.svc.Profiles.Following(ctx, s.me.ID); err != nil {
		t.Fatalf("Following: %v", err)
	}

	tess := newStack(t, b)
	tess.login(t, "tess", "secret1")
	pending, err := tess.svc.Requests.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending request, got %v %v", pending, err)
	}
	if _, err := tess.svc.Requests.Accept(ctx, pending[0].ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if after, _ := tess.svc.Requests.Pending(ctx); len(after) != 0 {
		t.Fatalf("expected pending list to be refetched empty, got %+v", after)
	}

	// Sam refreshes: the following list now includes tess.
	s.cache.Invalidate(cache.LabelFollowing, cache.LabelUserProfile)
	following, err := s.svc.Profiles.Following(ctx, s.me.ID)
	if err != nil {
		t.Fatalf("Following: %v", err)
	}
	found := false
	for _, u := range following {
		if u.ID == tessID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tess in following list, got %+v", following)
	}

	refreshed, err := s.svc.Profiles.RefreshProfile(ctx, "tess")
	if err != nil {
		t.Fatalf("RefreshProfile: %v", err)
	}
	if refreshed.FollowersCount != before+1 {
		t.Fatalf("expected followers %d, got %d", before+1, refreshed.FollowersCount)
	}
	view, _ := s.svc.Follows.View(s.me.ID, tessID)
	if view.State != models.RelationshipFollowing {
		t.Fatalf("expected reconciler to resync to following, got %+v", view)
	}
}

func TestScenarioD_FollowFailureRollsBack(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.AddUser("sam", "secret1", false)
	tessID := b.AddUser("tess", "secret1", false)

	s := newStack(t, b)
	s.login(t, "sam", "secret1")
	ctx := context.Background()

	target := s.profile(t, "tess")
	if _, err := s.svc.Profiles.Followers(ctx, tessID); err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if _, err := s.svc.Profiles.Following(ctx, s.me.ID); err != nil {
		t.Fatalf("Following: %v", err)
	}
	before := s.svc.Follows.Sync(s.me.ID, target)

	b.Fail(testutil.RouteFollow, http.StatusInternalServerError, "Something went wrong")
	view, err := s.svc.Follows.Follow(ctx, s.me.ID, target)

	var mErr *MutationError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MutationError, got %v", err)
	}
	if view != before || view.State != models.RelationshipNotFollowing {
		t.Fatalf("expected rollback to %+v, got %+v", before, view)
	}
	if _, ok := s.cache.Get(cache.KeyFor("followers", tessID)); !ok {
		t.Fatal("expected Followers to stay valid")
	}
	if _, ok := s.cache.Get(cache.KeyFor("following", s.me.ID)); !ok {
		t.Fatal("expected Following to stay valid")
	}
	if _, ok := s.cache.Get(cache.KeyFor("profile", "tess")); !ok {
		t.Fatal("expected cached profile to stay valid")
	}
	if b.IsFollowing(s.me.ID, tessID) {
		t.Fatal("expected no backend edge")
	}
}

func TestScenarioE_LogoutInvalidatesEvenWhenServerFails(t *testing.T) {
	for _, serverFails := range []bool{false, true} {
		name := "server ok"
		if serverFails {
			name = "server fails"
		}
		t.Run(name, func(t *testing.T) {
			b := testutil.NewFakeBackend(t)
			b.AddUser("sam", "secret1", false)
			b.AddUser("tess", "secret1", false)

			s := newStack(t, b)
			s.login(t, "sam", "secret1")
			ctx := context.Background()

			if _, err := s.svc.Auth.Me(ctx); err != nil {
				t.Fatalf("Me: %v", err)
			}
			target := s.profile(t, "tess")
			s.svc.Follows.Sync(s.me.ID, target)
			s.cache.Put(cache.KeyFor("search", "ta"), []models.User{}, []cache.Label{cache.LabelSearch})

			if serverFails {
				b.Fail(testutil.RouteLogout, http.StatusInternalServerError, "boom")
			}
			if err := s.svc.Auth.Logout(ctx); err != nil {
				t.Fatalf("Logout: %v", err)
			}

			if _, ok := s.session.Get(); ok {
				t.Fatal("expected session cleared")
			}
			if !s.cache.IsStale(cache.KeyFor("me")) {
				t.Fatal("expected Me/Auth invalidated")
			}
			if !s.cache.IsStale(cache.KeyFor("profile", "tess")) {
				t.Fatal("expected UserProfile invalidated")
			}
			if _, ok := s.cache.Get(cache.KeyFor("search", "ta")); !ok {
				t.Fatal("expected unrelated labels untouched")
			}
			if _, ok := s.svc.Follows.View(s.me.ID, target.ID); ok {
				t.Fatal("expected reconciler views dropped")
			}
			if _, err := s.svc.Auth.Me(ctx); !errors.Is(err, ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication after logout, got %v", err)
			}
		})
	}
}

func TestLogout_NextUserDoesNotSeePreviousLists(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.AddUser("sam", "secret1", false)
	b.AddUser("tess", "secret1", false)
	piaID := b.AddUser("pia", "secret1", true)

	s := newStack(t, b)
	s.login(t, "sam", "secret1")
	ctx := context.Background()

	if _, err := s.svc.Requests.Send(ctx, piaID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent, err := s.svc.Requests.Sent(ctx)
	if err != nil || len(sent) != 1 {
		t.Fatalf("expected sam's sent request, got %v %v", sent, err)
	}
	if _, err := s.svc.Feed.Feed(ctx, 1, 10); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	if err := s.svc.Auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !s.cache.IsStale(cache.KeyFor("requests", "sent")) {
		t.Fatal("expected sent requests invalidated on logout")
	}

	s.login(t, "tess", "secret1")
	sent, err = s.svc.Requests.Sent(ctx)
	if err != nil {
		t.Fatalf("Sent: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("expected no sent requests for tess, got %v", sent)
	}
	if got := b.Calls(testutil.RouteSentRequests); got != 2 {
		t.Fatalf("expected sent requests refetched, got %d calls", got)
	}
	if _, err := s.svc.Feed.Feed(ctx, 1, 10); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := b.Calls(testutil.RouteFeed); got != 2 {
		t.Fatalf("expected feed refetched, got %d calls", got)
	}
}
