package models

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestDeriveRelationship(t *testing.T) {
	tests := []struct {
		name        string
		isFollowing *bool
		requestSent *bool
		want        Relationship
	}{
		{"both absent", nil, nil, RelationshipNotFollowing},
		{"following", boolPtr(true), nil, RelationshipFollowing},
		{"following wins over request", boolPtr(true), boolPtr(true), RelationshipFollowing},
		{"request sent", nil, boolPtr(true), RelationshipPending},
		{"explicit false following with request", boolPtr(false), boolPtr(true), RelationshipPending},
		{"both false", boolPtr(false), boolPtr(false), RelationshipNotFollowing},
		{"request false", nil, boolPtr(false), RelationshipNotFollowing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRelationship(Profile{IsFollowing: tt.isFollowing, RequestSent: tt.requestSent})
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if !got.IsValid() {
				t.Fatalf("derived invalid relationship %q", got)
			}
			isFollowing := tt.isFollowing != nil && *tt.isFollowing
			if (got == RelationshipFollowing) != isFollowing {
				t.Fatalf("following must be derived iff is_following is true")
			}
		})
	}
}

func TestRelationshipActionLabel(t *testing.T) {
	if got := RelationshipNotFollowing.ActionLabel(true); got != "Request" {
		t.Fatalf("expected Request for private target, got %q", got)
	}
	if got := RelationshipNotFollowing.ActionLabel(false); got != "Follow" {
		t.Fatalf("expected Follow for public target, got %q", got)
	}
	if got := RelationshipPending.ActionLabel(true); got != "Requested" {
		t.Fatalf("expected Requested, got %q", got)
	}
	if got := RelationshipFollowing.ActionLabel(false); got != "Following" {
		t.Fatalf("expected Following, got %q", got)
	}
}

func TestRelationshipIsValid(t *testing.T) {
	if Relationship("blocked").IsValid() {
		t.Fatal("expected unknown relationship to be invalid")
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{Username: "ana"}).DisplayName(); got != "ana" {
		t.Fatalf("expected username fallback, got %q", got)
	}
	if got := (User{Username: "ana", FullName: "Ana P"}).DisplayName(); got != "Ana P" {
		t.Fatalf("expected full name, got %q", got)
	}
}

func TestProfileUpdateIsEmpty(t *testing.T) {
	if !(ProfileUpdate{}).IsEmpty() {
		t.Fatal("expected empty update")
	}
	bio := "hi"
	if (ProfileUpdate{Bio: &bio}).IsEmpty() {
		t.Fatal("expected non-empty update")
	}
}

func TestFriendRequestIsPending(t *testing.T) {
	if !(FriendRequest{Status: FriendRequestStatusPending}).IsPending() {
		t.Fatal("expected pending")
	}
	if (FriendRequest{Status: FriendRequestStatusAccepted}).IsPending() {
		t.Fatal("expected accepted to not be pending")
	}
}
