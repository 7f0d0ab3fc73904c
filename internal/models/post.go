package models

import (
	"strconv"
	"time"

	"github.com/aisocialapp/appcore/internal/platform"
)

// MediaKind distinguishes image and video attachments.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Post is a feed post. LikeCount is a cached aggregate maintained by
// separate writes from the likes collection, so it can drift; the likes
// rows are the source of truth for "is liked".
type Post struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username" validate:"required"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty" validate:"omitempty,url"`
	MediaKind   MediaKind `json:"media_kind" validate:"omitempty,oneof=image video"`
	AIGenerated bool      `json:"is_ai_generated"`
	LikeCount   int64     `json:"like_count" validate:"min=0"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntityID implements store.Entity.
func (p Post) EntityID() string { return strconv.FormatInt(p.ID, 10) }

// PostFromRecord decodes a remote row into a Post, ignoring unknown
// fields and defaulting missing ones.
func PostFromRecord(r platform.Record) Post {
	kind := MediaKind(r.String("media_kind"))
	if kind == "" {
		kind = MediaImage
	}
	return Post{
		ID:          r.Int64("id"),
		Username:    r.String("username"),
		Description: r.String("description"),
		ImageURL:    r.OptString("image_url"),
		MediaKind:   kind,
		AIGenerated: r.Bool("is_ai_generated"),
		LikeCount:   r.Int64("like_count"),
		CreatedAt:   r.Time("created_at"),
	}
}

// ToRecord encodes the writable fields of a new post. The server assigns
// id and created_at.
func (p Post) ToRecord() platform.Record {
	rec := platform.Record{
		"username":        p.Username,
		"description":     p.Description,
		"media_kind":      string(p.MediaKind),
		"is_ai_generated": p.AIGenerated,
		"like_count":      p.LikeCount,
	}
	if p.ImageURL != nil {
		rec["image_url"] = *p.ImageURL
	}
	return rec
}
