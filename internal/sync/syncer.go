// Package sync is the synchronization façade: it reconciles optimistic
// local edits, bulk reloads, and pushed change events into the view
// state, and issues the remote writes that persist user intents. The
// presentation layer only reads the view state and calls the intent
// methods here; it never mutates state directly.
package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
	"github.com/aisocialapp/appcore/internal/store"
)

// Collection names on the remote gateway.
const (
	colPosts         = "posts"
	colStories       = "stories"
	colLikes         = "likes"
	colComments      = "comments"
	colMessages      = "messages"
	colFriendships   = "friendships"
	colNotifications = "notifications"
	colProfiles      = "profiles"
)

// mediaBucket is the storage bucket all media uploads go to.
const mediaBucket = "images"

// Deps are the constructed platform handles the façade drives.
type Deps struct {
	Gateway  platform.Gateway
	Channel  platform.Channel
	Storage  platform.ObjectStorage
	Identity platform.Identity
	Logger   *zap.Logger

	// RequestTimeout bounds every remote operation; zero disables the
	// bound. ChatPollEvery is the degraded-mode poll interval when the
	// change channel is unavailable.
	RequestTimeout time.Duration
	ChatPollEvery  time.Duration
}

// Syncer owns the view state and the reconciliation policy per
// collection.
type Syncer struct {
	gw       platform.Gateway
	channel  platform.Channel
	storage  platform.ObjectStorage
	identity platform.Identity
	view     *store.ViewState
	log      *zap.Logger

	timeout   time.Duration
	pollEvery time.Duration
}

// New creates a façade with an empty view state.
func New(deps Deps) *Syncer {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pollEvery := deps.ChatPollEvery
	if pollEvery <= 0 {
		pollEvery = 2 * time.Second
	}
	return &Syncer{
		gw:        deps.Gateway,
		channel:   deps.Channel,
		storage:   deps.Storage,
		identity:  deps.Identity,
		view:      store.NewViewState(),
		log:       log,
		timeout:   deps.RequestTimeout,
		pollEvery: pollEvery,
	}
}

// View returns the view state for the presentation layer to read and
// subscribe to.
func (s *Syncer) View() *store.ViewState { return s.view }

// requireUser resolves the signed-in user and the username handle the
// schema keys on.
func (s *Syncer) requireUser() (platform.User, string, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return platform.User{}, "", apperr.New(apperr.KindAuth, "not signed in")
	}
	return *user, models.UsernameFromEmail(user.Email), nil
}

// opContext bounds a remote operation with the configured timeout.
func (s *Syncer) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// changeOp maps a channel operation onto the store's merge operation.
func changeOp(op platform.ChangeOp) store.ChangeOp {
	switch op {
	case platform.ChangeUpdate:
		return store.ChangeUpdate
	case platform.ChangeDelete:
		return store.ChangeDelete
	default:
		return store.ChangeInsert
	}
}
