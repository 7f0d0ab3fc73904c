package models

import (
	"strconv"

	"github.com/aisocialapp/appcore/internal/platform"
)

// Like is the unique fact that a user liked a post. Likes key off the
// opaque user id, unlike most of the schema which keys off username.
type Like struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id" validate:"required"`
	PostID int64  `json:"post_id" validate:"required"`
}

// EntityID implements store.Entity.
func (l Like) EntityID() string { return strconv.FormatInt(l.ID, 10) }

// LikeFromRecord decodes a remote row into a Like.
func LikeFromRecord(r platform.Record) Like {
	return Like{
		ID:     r.Int64("id"),
		UserID: r.String("user_id"),
		PostID: r.Int64("post_id"),
	}
}

// ToRecord encodes the writable fields of a like.
func (l Like) ToRecord() platform.Record {
	return platform.Record{
		"user_id": l.UserID,
		"post_id": l.PostID,
	}
}
