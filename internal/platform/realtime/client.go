// Package realtime implements the change notification channel client: a
// websocket feed of row-level change events per collection. Delivery is
// at-least-once with no ordering across collections and no replay after
// a drop; consumers must re-fetch after a reconnect.
package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

// frame is the wire envelope exchanged over the websocket.
type frame struct {
	Action     string          `json:"action,omitempty"`
	Type       string          `json:"type,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Op         string          `json:"op,omitempty"`
	Record     platform.Record `json:"record,omitempty"`
}

// Client dials the platform's realtime endpoint and produces per-
// collection subscriptions.
type Client struct {
	baseURL string
	apiKey  string
	token   func() string
	log     *zap.Logger

	dialTimeout    time.Duration
	reconnectDelay time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithReconnectDelay sets the base delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// New creates a realtime client. token may be nil for anonymous access.
func New(baseURL, apiKey string, token func() string, opts ...Option) *Client {
	c := &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		token:          token,
		log:            zap.NewNop(),
		dialTimeout:    10 * time.Second,
		reconnectDelay: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ platform.Channel = (*Client)(nil)

// Subscribe opens a change feed for one collection. The subscription
// reconnects on its own after a drop, reporting Reconnecting and then
// Live again; it ends only when ctx is canceled or Close is called.
func (c *Client) Subscribe(ctx context.Context, collection string) (platform.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	s := &subscription{
		client:     c,
		collection: collection,
		events:     make(chan platform.ChangeEvent, 64),
		states:     make(chan platform.SubscriptionState, 8),
		cancel:     cancel,
	}

	s.setState(platform.StateSubscribing)
	conn, err := c.dial(subCtx, collection)
	if err != nil {
		cancel()
		s.setState(platform.StateUnsubscribed)
		return nil, err
	}
	s.setState(platform.StateLive)
	go s.run(subCtx, conn)
	return s, nil
}

func (c *Client) dial(ctx context.Context, collection string) (*websocket.Conn, error) {
	u := strings.Replace(c.baseURL, "http", "ws", 1) + "/realtime/v1/websocket"
	header := http.Header{}
	header.Set("apikey", c.apiKey)
	if c.token != nil {
		if t := c.token(); t != "" {
			header.Set("Authorization", "Bearer "+t)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "realtime dial failed", err)
	}
	if err := conn.WriteJSON(frame{Action: "subscribe", Collection: collection}); err != nil {
		conn.Close()
		return nil, apperr.Wrap(apperr.KindTransport, "realtime subscribe failed", err)
	}
	return conn, nil
}

type subscription struct {
	client     *Client
	collection string
	events     chan platform.ChangeEvent
	states     chan platform.SubscriptionState
	cancel     context.CancelFunc
}

func (s *subscription) Events() <-chan platform.ChangeEvent          { return s.events }
func (s *subscription) States() <-chan platform.SubscriptionState    { return s.states }
func (s *subscription) Close()                                       { s.cancel() }

// run reads frames until the context ends, redialing after drops. There
// is no gap-filling: events published while disconnected are lost here,
// which is why the façade re-fetches when it sees Live after Reconnecting.
func (s *subscription) run(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		close(s.events)
		s.setState(platform.StateUnsubscribed)
		close(s.states)
	}()

	for {
		err := s.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.client.log.Debug("realtime connection dropped",
			zap.String("collection", s.collection), zap.Error(err))
		s.setState(platform.StateReconnecting)

		conn = s.redial(ctx)
		if conn == nil {
			return
		}
		s.setState(platform.StateLive)
	}
}

func (s *subscription) readLoop(ctx context.Context, conn *websocket.Conn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		if f.Type != "change" || f.Collection != s.collection {
			continue
		}
		ev := platform.ChangeEvent{
			Collection: f.Collection,
			Op:         platform.ChangeOp(f.Op),
			Record:     f.Record,
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *subscription) redial(ctx context.Context) *websocket.Conn {
	delay := s.client.reconnectDelay
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		conn, err := s.client.dial(ctx, s.collection)
		if err == nil {
			return conn
		}
		if delay < 30*time.Second {
			delay *= 2
		}
		s.client.log.Debug("realtime redial failed",
			zap.String("collection", s.collection),
			zap.Int("attempt", attempt), zap.Error(err))
	}
}

func (s *subscription) setState(st platform.SubscriptionState) {
	select {
	case s.states <- st:
	default:
		// A slow consumer keeps only the most recent transitions.
		select {
		case <-s.states:
		default:
		}
		select {
		case s.states <- st:
		default:
		}
	}
}
