package models

import (
	"strconv"
	"time"

	"github.com/aisocialapp/appcore/internal/platform"
)

// MessageKind distinguishes text and audio messages.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageAudio MessageKind = "audio"
)

// Message is one chat message. A conversation is identified by the
// unordered pair {sender, receiver}: its message set is the union of rows
// matching the pair in either order.
//
// A message composed locally but not yet confirmed by the gateway carries
// a ProvisionalID and a zero ID. Once the confirmed row arrives (via the
// insert response or a change event) the provisional entry is replaced,
// never duplicated.
type Message struct {
	ID            int64       `json:"id"`
	ProvisionalID string      `json:"-"`
	Sender        string      `json:"sender_username" validate:"required"`
	Receiver      string      `json:"receiver_username" validate:"required"`
	Content       *string     `json:"content,omitempty"`
	MediaURL      *string     `json:"media_url,omitempty" validate:"omitempty,url"`
	Kind          MessageKind `json:"kind" validate:"omitempty,oneof=text audio"`
	CreatedAt     time.Time   `json:"created_at"`
}

// EntityID implements store.Entity. Confirmed messages key by server id,
// provisional ones by their local id.
func (m Message) EntityID() string {
	if m.ID != 0 {
		return "m" + strconv.FormatInt(m.ID, 10)
	}
	return "p" + m.ProvisionalID
}

// Provisional reports whether the message awaits server confirmation.
func (m Message) Provisional() bool { return m.ID == 0 }

// InConversation reports whether the message belongs to the unordered
// pair {a, b}.
func (m Message) InConversation(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// SameContent reports whether other is plausibly the confirmed echo of a
// provisional message: same direction and same payload.
func (m Message) SameContent(other Message) bool {
	if m.Sender != other.Sender || m.Receiver != other.Receiver {
		return false
	}
	if strPtrEq(m.Content, other.Content) && strPtrEq(m.MediaURL, other.MediaURL) {
		return true
	}
	return false
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MessageFromRecord decodes a remote row into a Message.
func MessageFromRecord(r platform.Record) Message {
	kind := MessageKind(r.String("kind"))
	if kind == "" {
		kind = MessageText
	}
	return Message{
		ID:        r.Int64("id"),
		Sender:    r.String("sender_username"),
		Receiver:  r.String("receiver_username"),
		Content:   r.OptString("content"),
		MediaURL:  r.OptString("media_url"),
		Kind:      kind,
		CreatedAt: r.Time("created_at"),
	}
}

// ToRecord encodes the writable fields of a new message.
func (m Message) ToRecord() platform.Record {
	rec := platform.Record{
		"sender_username":   m.Sender,
		"receiver_username": m.Receiver,
		"kind":              string(m.Kind),
	}
	if m.Content != nil {
		rec["content"] = *m.Content
	}
	if m.MediaURL != nil {
		rec["media_url"] = *m.MediaURL
	}
	return rec
}
