package models

import (
	"strconv"

	"github.com/aisocialapp/appcore/internal/platform"
)

// FriendshipStatus is the state of a directed friend request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship is a directed friend request. Acceptance and rejection
// mutate the status on the same row; no second row is created.
type Friendship struct {
	ID       int64            `json:"id"`
	Sender   string           `json:"sender_username" validate:"required"`
	Receiver string           `json:"receiver_username" validate:"required"`
	Status   FriendshipStatus `json:"status" validate:"omitempty,oneof=pending accepted rejected"`
}

// EntityID implements store.Entity.
func (f Friendship) EntityID() string { return strconv.FormatInt(f.ID, 10) }

// Involves reports whether the friendship links the two usernames in
// either direction.
func (f Friendship) Involves(a, b string) bool {
	return (f.Sender == a && f.Receiver == b) || (f.Sender == b && f.Receiver == a)
}

// Other returns the counterpart of username on this friendship row.
func (f Friendship) Other(username string) string {
	if f.Sender == username {
		return f.Receiver
	}
	return f.Sender
}

// FriendshipFromRecord decodes a remote row into a Friendship.
func FriendshipFromRecord(r platform.Record) Friendship {
	status := FriendshipStatus(r.String("status"))
	if status == "" {
		status = FriendshipPending
	}
	return Friendship{
		ID:       r.Int64("id"),
		Sender:   r.String("sender_username"),
		Receiver: r.String("receiver_username"),
		Status:   status,
	}
}

// ToRecord encodes the writable fields of a friendship request.
func (f Friendship) ToRecord() platform.Record {
	return platform.Record{
		"sender_username":   f.Sender,
		"receiver_username": f.Receiver,
		"status":            string(f.Status),
	}
}
