package models

import (
	"time"
)

type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

// FriendRequest is an approval-required follow of a private account.
type FriendRequest struct {
	ID        int64               `json:"id"`
	Sender    User                `json:"sender"`
	Receiver  User                `json:"receiver"`
	Status    FriendRequestStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

func (r FriendRequest) IsPending() bool {
	return r.Status == FriendRequestStatusPending
}

// FollowResult is the backend's answer to a follow call. RequestSent is true
// when the target is private and a request was created instead of an edge.
type FollowResult struct {
	RequestSent bool   `json:"sent"`
	Message     string `json:"message"`
}

type RequestDecision struct {
	Status  FriendRequestStatus `json:"status"`
	Message string              `json:"message,omitempty"`
}
