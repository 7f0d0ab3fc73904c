package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/aisocialapp/appcore/internal/models"
)

// ViewState aggregates every collection the UI renders. It is owned and
// mutated exclusively by the synchronization façade.
type ViewState struct {
	Feed          *Collection[models.Post]
	Stories       *Collection[models.Story]
	Notifications *Collection[models.Notification]
	Requests      *Collection[models.Friendship]
	Liked         *LikedSet

	mu            sync.Mutex
	conversations map[string]*Collection[models.Message]
	comments      map[int64]*Collection[models.Comment]
}

// NewViewState creates an empty view state. Feed and stories show newest
// first; conversations display oldest first by created_at with ties kept
// in insertion order.
func NewViewState() *ViewState {
	return &ViewState{
		Feed: NewCollection[models.Post](func(a, b models.Post) bool {
			return a.ID > b.ID
		}),
		Stories: NewCollection[models.Story](func(a, b models.Story) bool {
			return a.ID > b.ID
		}),
		Notifications: NewCollection[models.Notification](func(a, b models.Notification) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}),
		Requests:      NewCollection[models.Friendship](nil),
		Liked:         NewLikedSet(),
		conversations: make(map[string]*Collection[models.Message]),
		comments:      make(map[int64]*Collection[models.Comment]),
	}
}

// Conversation returns the message collection for the unordered pair
// {a, b}, creating it on first use.
func (v *ViewState) Conversation(a, b string) *Collection[models.Message] {
	key := ConversationKey(a, b)
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.conversations[key]; ok {
		return c
	}
	c := NewCollection[models.Message](func(x, y models.Message) bool {
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt)
		}
		// Tie-break on id; provisional entries (id 0) sink to the end,
		// matching where a just-sent message belongs.
		return x.ID != 0 && (y.ID == 0 || x.ID < y.ID)
	})
	v.conversations[key] = c
	return c
}

// Comments returns the comment collection for a post, newest first,
// creating it on first use.
func (v *ViewState) Comments(postID int64) *Collection[models.Comment] {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.comments[postID]; ok {
		return c
	}
	c := NewCollection[models.Comment](func(a, b models.Comment) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	v.comments[postID] = c
	return c
}

// ConversationKey derives the canonical key for an unordered username
// pair.
func ConversationKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

// ChatSummary is one row of the chat list: the partner plus the newest
// message exchanged with them.
type ChatSummary struct {
	Partner     string
	LastMessage models.Message
}

// SummarizeChats groups messages involving self by conversation partner
// and keeps each group's newest message, newest conversations first.
func SummarizeChats(self string, msgs []models.Message) []ChatSummary {
	latest := make(map[string]models.Message)
	for _, m := range msgs {
		partner := m.Receiver
		if partner == self {
			partner = m.Sender
		}
		if prev, ok := latest[partner]; !ok || m.CreatedAt.After(prev.CreatedAt) {
			latest[partner] = m
		}
	}
	out := make([]ChatSummary, 0, len(latest))
	for partner, m := range latest {
		out = append(out, ChatSummary{Partner: partner, LastMessage: m})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out
}
