package models

import (
	"strconv"
	"time"

	"github.com/aisocialapp/appcore/internal/platform"
)

// Comment is a comment on a post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id" validate:"required"`
	Username  string    `json:"username" validate:"required"`
	Content   string    `json:"content" validate:"required,min=1,max=500"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityID implements store.Entity.
func (c Comment) EntityID() string { return strconv.FormatInt(c.ID, 10) }

// CommentFromRecord decodes a remote row into a Comment.
func CommentFromRecord(r platform.Record) Comment {
	return Comment{
		ID:        r.Int64("id"),
		PostID:    r.Int64("post_id"),
		Username:  r.String("username"),
		Content:   r.String("content"),
		CreatedAt: r.Time("created_at"),
	}
}

// ToRecord encodes the writable fields of a comment.
func (c Comment) ToRecord() platform.Record {
	return platform.Record{
		"post_id":  c.PostID,
		"username": c.Username,
		"content":  c.Content,
	}
}
