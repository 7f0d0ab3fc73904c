package models

import (
	"strconv"
	"time"

	"github.com/aisocialapp/appcore/internal/platform"
)

// Story is an ephemeral image post shown in the stories strip. Expiry is
// product intent only; nothing in the data layer enforces it.
type Story struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username" validate:"required"`
	ImageURL  string    `json:"image_url" validate:"required,url"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityID implements store.Entity.
func (s Story) EntityID() string { return strconv.FormatInt(s.ID, 10) }

// StoryFromRecord decodes a remote row into a Story.
func StoryFromRecord(r platform.Record) Story {
	return Story{
		ID:        r.Int64("id"),
		Username:  r.String("username"),
		ImageURL:  r.String("image_url"),
		CreatedAt: r.Time("created_at"),
	}
}

// ToRecord encodes the writable fields of a story.
func (s Story) ToRecord() platform.Record {
	return platform.Record{
		"username":  s.Username,
		"image_url": s.ImageURL,
	}
}
