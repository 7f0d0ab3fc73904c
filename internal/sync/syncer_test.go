package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/platform"
)

// Test doubles for the platform surfaces. Behavior is injected per test
// through the Fn fields; calls are recorded for assertions.

type insertCall struct {
	collection string
	record     platform.Record
	settings   platform.InsertSettings
}

type updateCall struct {
	collection string
	fields     platform.Record
	filter     platform.Filter
}

type deleteCall struct {
	collection string
	filter     platform.Filter
}

type fakeGateway struct {
	mu sync.Mutex

	selectFn func(q platform.Query) ([]platform.Record, error)
	insertFn func(collection string, record platform.Record, settings platform.InsertSettings) (platform.Record, error)
	updateFn func(collection string, fields platform.Record, filter platform.Filter) error
	deleteFn func(collection string, filter platform.Filter) error

	selects []platform.Query
	inserts []insertCall
	updates []updateCall
	deletes []deleteCall
}

func (g *fakeGateway) Select(_ context.Context, q platform.Query) ([]platform.Record, error) {
	g.mu.Lock()
	g.selects = append(g.selects, q)
	fn := g.selectFn
	g.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(q)
}

func (g *fakeGateway) Insert(_ context.Context, collection string, record platform.Record, opts ...platform.InsertOption) (platform.Record, error) {
	settings := platform.ApplyInsertOptions(opts)
	g.mu.Lock()
	g.inserts = append(g.inserts, insertCall{collection, record, settings})
	fn := g.insertFn
	g.mu.Unlock()
	if fn == nil {
		return record, nil
	}
	return fn(collection, record, settings)
}

func (g *fakeGateway) Update(_ context.Context, collection string, fields platform.Record, filter platform.Filter) error {
	g.mu.Lock()
	g.updates = append(g.updates, updateCall{collection, fields, filter})
	fn := g.updateFn
	g.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(collection, fields, filter)
}

func (g *fakeGateway) Delete(_ context.Context, collection string, filter platform.Filter) error {
	g.mu.Lock()
	g.deletes = append(g.deletes, deleteCall{collection, filter})
	fn := g.deleteFn
	g.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(collection, filter)
}

func (g *fakeGateway) insertCalls() []insertCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]insertCall(nil), g.inserts...)
}

func (g *fakeGateway) updateCalls() []updateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]updateCall(nil), g.updates...)
}

func (g *fakeGateway) deleteCalls() []deleteCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]deleteCall(nil), g.deletes...)
}

type fakeIdentity struct {
	user *platform.User
}

func (f *fakeIdentity) SignUp(context.Context, string, string) (*platform.Session, error) {
	return nil, nil
}

func (f *fakeIdentity) SignIn(context.Context, string, string) (*platform.Session, error) {
	return nil, nil
}

func (f *fakeIdentity) SignOut(context.Context) error { return nil }

func (f *fakeIdentity) CurrentUser() (*platform.User, bool) {
	if f.user == nil {
		return nil, false
	}
	return f.user, true
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
	fail    error
}

func (f *fakeStorage) Upload(_ context.Context, bucket, key string, _ []byte, _ string) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, bucket+"/"+key)
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", bucket, key)
}

// fakeSubscription lets a test inject change events and state
// transitions by hand.
type fakeSubscription struct {
	events chan platform.ChangeEvent
	states chan platform.SubscriptionState
	closed chan struct{}
	once   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		events: make(chan platform.ChangeEvent, 16),
		states: make(chan platform.SubscriptionState, 16),
		closed: make(chan struct{}),
	}
}

func (s *fakeSubscription) Events() <-chan platform.ChangeEvent        { return s.events }
func (s *fakeSubscription) States() <-chan platform.SubscriptionState { return s.states }
func (s *fakeSubscription) Close()                                    { s.once.Do(func() { close(s.closed) }) }

type fakeChannel struct {
	sub *fakeSubscription
	err error
}

func (c *fakeChannel) Subscribe(context.Context, string) (platform.Subscription, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.sub, nil
}

func testUser() *platform.User {
	return &platform.User{ID: "u-ann", Email: "ann@example.com"}
}

func newTestSyncer(gw *fakeGateway, ch platform.Channel) *Syncer {
	if ch == nil {
		ch = &fakeChannel{sub: newFakeSubscription()}
	}
	return New(Deps{
		Gateway:        gw,
		Channel:        ch,
		Storage:        &fakeStorage{},
		Identity:       &fakeIdentity{user: testUser()},
		Logger:         zap.NewNop(),
		RequestTimeout: 5 * time.Second,
		ChatPollEvery:  time.Hour, // polling never fires within a test
	})
}
