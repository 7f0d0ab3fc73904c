package models

import (
	"github.com/aisocialapp/appcore/internal/platform"
)

// MessagePermission controls who may open a chat with the profile owner.
type MessagePermission string

const (
	MessagesFromEveryone MessagePermission = "everyone"
	MessagesFromFriends  MessagePermission = "friends"
)

// Profile is a user profile. Username is the unique handle the rest of
// the schema keys on; ID is the opaque identity from the auth provider.
type Profile struct {
	ID                 string            `json:"id"`
	Username           string            `json:"username" validate:"required"`
	FullName           *string           `json:"full_name,omitempty"`
	Bio                *string           `json:"bio,omitempty"`
	AvatarURL          *string           `json:"avatar_url,omitempty" validate:"omitempty,url"`
	IsPrivate          bool              `json:"is_private"`
	MessagePermission  MessagePermission `json:"message_permission" validate:"omitempty,oneof=everyone friends"`
	ShowStatus         bool              `json:"show_status"`
	AllowNotifications bool              `json:"allow_notifications"`
}

// EntityID implements store.Entity.
func (p Profile) EntityID() string { return p.Username }

// ProfileFromRecord decodes a remote row into a Profile. Missing toggle
// fields take their product defaults rather than Go zero values.
func ProfileFromRecord(r platform.Record) Profile {
	perm := MessagePermission(r.String("message_permission"))
	if perm == "" {
		perm = MessagesFromEveryone
	}
	showStatus := true
	if r.Has("show_status") {
		showStatus = r.Bool("show_status")
	}
	allowNotifications := true
	if r.Has("allow_notifications") {
		allowNotifications = r.Bool("allow_notifications")
	}
	return Profile{
		ID:                 r.String("id"),
		Username:           r.String("username"),
		FullName:           r.OptString("full_name"),
		Bio:                r.OptString("bio"),
		AvatarURL:          r.OptString("avatar_url"),
		IsPrivate:          r.Bool("is_private"),
		MessagePermission:  perm,
		ShowStatus:         showStatus,
		AllowNotifications: allowNotifications,
	}
}

// ToRecord encodes the writable fields of a profile.
func (p Profile) ToRecord() platform.Record {
	rec := platform.Record{
		"id":                  p.ID,
		"username":            p.Username,
		"is_private":          p.IsPrivate,
		"message_permission":  string(p.MessagePermission),
		"show_status":         p.ShowStatus,
		"allow_notifications": p.AllowNotifications,
	}
	if p.FullName != nil {
		rec["full_name"] = *p.FullName
	}
	if p.Bio != nil {
		rec["bio"] = *p.Bio
	}
	if p.AvatarURL != nil {
		rec["avatar_url"] = *p.AvatarURL
	}
	return rec
}
