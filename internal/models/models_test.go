package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

func strPtr(s string) *string { return &s }

func TestPostFromRecordDefaults(t *testing.T) {
	post := PostFromRecord(platform.Record{
		"id":       float64(10),
		"username": "ann",
	})
	assert.Equal(t, int64(10), post.ID)
	assert.Equal(t, MediaImage, post.MediaKind, "media kind defaults to image")
	assert.Zero(t, post.LikeCount)
	assert.Nil(t, post.ImageURL)
}

func TestProfileFromRecordDefaults(t *testing.T) {
	profile := ProfileFromRecord(platform.Record{
		"id":       "u-ann",
		"username": "ann",
	})
	assert.Equal(t, MessagesFromEveryone, profile.MessagePermission)
	assert.True(t, profile.ShowStatus)
	assert.True(t, profile.AllowNotifications)
	assert.False(t, profile.IsPrivate)

	// Explicit false values survive decoding instead of being replaced by
	// the defaults.
	profile = ProfileFromRecord(platform.Record{
		"username":            "ann",
		"show_status":         false,
		"allow_notifications": false,
	})
	assert.False(t, profile.ShowStatus)
	assert.False(t, profile.AllowNotifications)
}

func TestMessageFromRecordDefaultsKind(t *testing.T) {
	msg := MessageFromRecord(platform.Record{
		"id":                float64(3),
		"sender_username":   "ann",
		"receiver_username": "bob",
		"content":           "hi",
	})
	assert.Equal(t, MessageText, msg.Kind)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "hi", *msg.Content)
}

func TestMessageEntityIDDistinguishesProvisional(t *testing.T) {
	confirmed := Message{ID: 42}
	provisional := Message{ProvisionalID: "abc"}

	assert.Equal(t, "m42", confirmed.EntityID())
	assert.Equal(t, "pabc", provisional.EntityID())
	assert.False(t, confirmed.Provisional())
	assert.True(t, provisional.Provisional())
}

func TestMessageSameContentMatchesConfirmedEcho(t *testing.T) {
	sent := Message{Sender: "ann", Receiver: "bob", Content: strPtr("hi"), ProvisionalID: "x"}
	echo := Message{ID: 7, Sender: "ann", Receiver: "bob", Content: strPtr("hi")}
	other := Message{ID: 8, Sender: "bob", Receiver: "ann", Content: strPtr("hi")}
	different := Message{ID: 9, Sender: "ann", Receiver: "bob", Content: strPtr("yo")}

	assert.True(t, sent.SameContent(echo))
	assert.False(t, sent.SameContent(other), "direction matters")
	assert.False(t, sent.SameContent(different))
}

func TestFriendshipCounterpart(t *testing.T) {
	f := Friendship{Sender: "ann", Receiver: "bob"}
	assert.Equal(t, "bob", f.Other("ann"))
	assert.Equal(t, "ann", f.Other("bob"))
	assert.True(t, f.Involves("bob", "ann"))
	assert.False(t, f.Involves("ann", "cal"))
}

func TestFriendshipFromRecordDefaultsPending(t *testing.T) {
	f := FriendshipFromRecord(platform.Record{
		"id":                float64(1),
		"sender_username":   "ann",
		"receiver_username": "bob",
	})
	assert.Equal(t, FriendshipPending, f.Status)
}

func TestValidateReportsValidationKind(t *testing.T) {
	err := Validate(Post{Username: "", LikeCount: -1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.NoError(t, Validate(Post{Username: "ann", MediaKind: MediaImage}))
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "ann", UsernameFromEmail("ann@example.com"))
	assert.Equal(t, "ann", UsernameFromEmail("ann"))
}
