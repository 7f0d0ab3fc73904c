// Package platform defines the client-side surface of the hosted backend:
// the remote data gateway, the change notification channel, object storage,
// and identity. Concrete clients live in the subpackages; the sync façade
// only ever sees these interfaces so tests can substitute doubles.
package platform

import "context"

// Record is one row exchanged with the remote data gateway. Unknown fields
// are ignored on read and omitted fields take entity defaults on write.
type Record map[string]any

// Filter is a boolean filter tree over record columns.
type Filter interface{ isFilter() }

// Eq matches records whose column equals a value.
type Eq struct {
	Column string
	Value  any
}

// ILike matches records whose column matches a case-insensitive pattern
// with % wildcards.
type ILike struct {
	Column  string
	Pattern string
}

// In matches records whose column is a member of a value set.
type In struct {
	Column string
	Values []any
}

// And matches records satisfying every child filter.
type And []Filter

// Or matches records satisfying at least one child filter.
type Or []Filter

func (Eq) isFilter()    {}
func (ILike) isFilter() {}
func (In) isFilter()    {}
func (And) isFilter()   {}
func (Or) isFilter()    {}

// OrderBy orders a result set by one column.
type OrderBy struct {
	Column     string
	Descending bool
}

// Query describes a filtered, ordered, projected read of one collection.
type Query struct {
	Collection string
	Filter     Filter   // nil selects everything
	Order      []OrderBy
	Columns    []string // nil projects all columns
	Limit      int64    // 0 means no limit
	Offset     int64
}

// InsertOption adjusts a single insert.
type InsertOption func(*InsertSettings)

// InsertSettings carries resolved insert options.
type InsertSettings struct {
	IdempotencyKey string
}

// WithIdempotencyKey attaches a client-generated key so a retried insert
// cannot create a duplicate fact.
func WithIdempotencyKey(key string) InsertOption {
	return func(s *InsertSettings) { s.IdempotencyKey = key }
}

// ApplyInsertOptions resolves a set of insert options.
func ApplyInsertOptions(opts []InsertOption) InsertSettings {
	var s InsertSettings
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Gateway executes queries and writes against named collections.
type Gateway interface {
	Select(ctx context.Context, q Query) ([]Record, error)
	Insert(ctx context.Context, collection string, record Record, opts ...InsertOption) (Record, error)
	Update(ctx context.Context, collection string, fields Record, filter Filter) error
	Delete(ctx context.Context, collection string, filter Filter) error
}

// ChangeOp is the operation carried by a change notification event.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeEvent is one row-level change pushed for a collection. Delivery is
// at-least-once with no ordering across collections and no replay after a
// connection drop.
type ChangeEvent struct {
	Collection string
	Op         ChangeOp
	Record     Record
}

// SubscriptionState tracks the lifecycle of one channel subscription.
type SubscriptionState int

const (
	StateUnsubscribed SubscriptionState = iota
	StateSubscribing
	StateLive
	StateReconnecting
)

func (s SubscriptionState) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unsubscribed"
	}
}

// Subscription is a live feed of change events for one collection.
// States reports lifecycle transitions; after a StateReconnecting →
// StateLive transition the consumer must re-fetch to cover the gap,
// because the channel does not replay missed events.
type Subscription interface {
	Events() <-chan ChangeEvent
	States() <-chan SubscriptionState
	Close()
}

// Channel produces subscriptions to per-collection change feeds.
type Channel interface {
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}

// ObjectStorage uploads media and resolves stable public URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PublicURL(bucket, key string) string
}

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session issued by the identity provider.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Identity is the hosted auth surface. Sessions persist across restarts
// until an explicit sign-out.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentUser() (*User, bool)
}
