package models

import (
	"strconv"
	"time"

	"github.com/aisocialapp/appcore/internal/platform"
)

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
)

// Notification is an activity notice for one user. Keys off the opaque
// user id, like Like rows.
type Notification struct {
	ID            int64            `json:"id"`
	UserID        string           `json:"user_id" validate:"required"`
	ActorUsername string           `json:"actor_username"`
	Kind          NotificationKind `json:"kind" validate:"omitempty,oneof=like comment"`
	Message       string           `json:"message"`
	CreatedAt     time.Time        `json:"created_at"`
}

// EntityID implements store.Entity.
func (n Notification) EntityID() string { return strconv.FormatInt(n.ID, 10) }

// NotificationFromRecord decodes a remote row into a Notification.
func NotificationFromRecord(r platform.Record) Notification {
	return Notification{
		ID:            r.Int64("id"),
		UserID:        r.String("user_id"),
		ActorUsername: r.String("actor_username"),
		Kind:          NotificationKind(r.String("kind")),
		Message:       r.String("message"),
		CreatedAt:     r.Time("created_at"),
	}
}

// ToRecord encodes the writable fields of a notification.
func (n Notification) ToRecord() platform.Record {
	return platform.Record{
		"user_id":        n.UserID,
		"actor_username": n.ActorUsername,
		"kind":           string(n.Kind),
		"message":        n.Message,
	}
}
