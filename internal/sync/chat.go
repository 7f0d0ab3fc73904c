package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
	"github.com/aisocialapp/appcore/internal/store"
)

// Conversation is an open chat with one partner: a fetched message view
// kept live by the change channel, or by polling when the channel is
// unavailable. Close it when navigating away; the context passed to
// OpenConversation bounds its lifetime as well.
type Conversation struct {
	s       *Syncer
	self    string
	partner string
	col     *store.Collection[models.Message]
	cancel  context.CancelFunc
}

// OpenConversation fetches the message history with partner, replaces
// the conversation view, and starts live updates. Messages display in
// created_at order regardless of arrival order.
func (s *Syncer) OpenConversation(ctx context.Context, partner string) (*Conversation, error) {
	_, self, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	col := s.view.Conversation(self, partner)
	epoch := col.Begin()

	fetchCtx, cancelFetch := s.opContext(ctx)
	msgs, err := s.fetchConversation(fetchCtx, self, partner)
	cancelFetch()
	if err != nil {
		// Previous snapshot is retained; the caller surfaces the error.
		return nil, err
	}
	col.Replace(epoch, msgs)

	convCtx, cancel := context.WithCancel(ctx)
	conv := &Conversation{s: s, self: self, partner: partner, col: col, cancel: cancel}

	sub, err := s.channel.Subscribe(convCtx, colMessages)
	if err != nil {
		s.log.Warn("change channel unavailable, polling instead",
			zap.String("partner", partner), zap.Error(err))
		go conv.poll(convCtx)
		return conv, nil
	}
	go conv.consume(convCtx, sub)
	return conv, nil
}

// Messages returns the current conversation snapshot.
func (c *Conversation) Messages() []models.Message { return c.col.Items() }

// Collection exposes the conversation view for subscription by the
// presentation layer.
func (c *Conversation) Collection() *store.Collection[models.Message] { return c.col }

// Close stops live updates for this conversation.
func (c *Conversation) Close() { c.cancel() }

// Send optimistically appends a provisional message, persists it, and
// reconciles the provisional entry with the stored row so the sender
// never sees a duplicate bubble — even when the row's change event
// arrives before the insert response.
func (c *Conversation) Send(ctx context.Context, content string) error {
	ctx, cancel := c.s.opContext(ctx)
	defer cancel()

	text := content
	msg := models.Message{
		ProvisionalID: uuid.NewString(),
		Sender:        c.self,
		Receiver:      c.partner,
		Content:       &text,
		Kind:          models.MessageText,
		CreatedAt:     time.Now(),
	}
	if err := models.Validate(msg); err != nil {
		return err
	}

	c.col.MergeChange(store.ChangeInsert, msg)

	rec, err := c.s.gw.Insert(ctx, colMessages, msg.ToRecord(),
		platform.WithIdempotencyKey(msg.ProvisionalID))
	if err != nil {
		c.col.Remove(msg.EntityID())
		return err
	}
	confirmed := models.MessageFromRecord(rec)
	c.col.ReplaceItem(msg.EntityID(), confirmed)
	return nil
}

// consume folds channel events into the conversation view. After the
// channel reports Live following a reconnect, the history is re-fetched
// because events during the gap are not replayed.
func (c *Conversation) consume(ctx context.Context, sub platform.Subscription) {
	defer sub.Close()
	reconnecting := false
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-sub.States():
			if !ok {
				return
			}
			switch st {
			case platform.StateReconnecting:
				reconnecting = true
			case platform.StateLive:
				if reconnecting {
					reconnecting = false
					c.refetch(ctx)
				}
			case platform.StateUnsubscribed:
				return
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.merge(ev)
		}
	}
}

// merge applies one change event, de-duplicating the confirmed echo of
// a provisional message by content when the ids differ.
func (c *Conversation) merge(ev platform.ChangeEvent) {
	msg := models.MessageFromRecord(ev.Record)
	if !msg.InConversation(c.self, c.partner) {
		return
	}
	if ev.Op == platform.ChangeInsert && msg.Sender == c.self {
		for _, existing := range c.col.Items() {
			if existing.Provisional() && existing.SameContent(msg) {
				c.col.ReplaceItem(existing.EntityID(), msg)
				return
			}
		}
	}
	c.col.MergeChange(changeOp(ev.Op), msg)
}

// poll is the degraded fallback: re-fetch the conversation on a fixed
// interval until the context ends.
func (c *Conversation) poll(ctx context.Context) {
	ticker := time.NewTicker(c.s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refetch(ctx)
		}
	}
}

// refetch reloads the full history and replaces the view, preserving
// any still-unconfirmed provisional messages.
func (c *Conversation) refetch(ctx context.Context) {
	fetchCtx, cancel := c.s.opContext(ctx)
	defer cancel()

	epoch := c.col.Epoch()
	msgs, err := c.s.fetchConversation(fetchCtx, c.self, c.partner)
	if err != nil {
		c.s.log.Debug("conversation refetch failed",
			zap.String("partner", c.partner), zap.Error(err))
		return
	}
	for _, existing := range c.col.Items() {
		if !existing.Provisional() {
			continue
		}
		confirmed := false
		for _, fetched := range msgs {
			if existing.SameContent(fetched) {
				confirmed = true
				break
			}
		}
		if !confirmed {
			msgs = append(msgs, existing)
		}
	}
	c.col.Replace(epoch, msgs)
}

func (s *Syncer) fetchConversation(ctx context.Context, self, partner string) ([]models.Message, error) {
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colMessages,
		Filter: platform.Or{
			platform.And{
				platform.Eq{Column: "sender_username", Value: self},
				platform.Eq{Column: "receiver_username", Value: partner},
			},
			platform.And{
				platform.Eq{Column: "sender_username", Value: partner},
				platform.Eq{Column: "receiver_username", Value: self},
			},
		},
		Order: []platform.OrderBy{{Column: "created_at"}},
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]models.Message, len(records))
	for i, r := range records {
		msgs[i] = models.MessageFromRecord(r)
	}
	return msgs, nil
}

// ChatList fetches every message involving the current user and groups
// it into per-partner summaries, newest conversation first.
func (s *Syncer) ChatList(ctx context.Context) ([]store.ChatSummary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, self, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colMessages,
		Filter: platform.Or{
			platform.Eq{Column: "sender_username", Value: self},
			platform.Eq{Column: "receiver_username", Value: self},
		},
		Order: []platform.OrderBy{{Column: "created_at", Descending: true}},
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]models.Message, len(records))
	for i, r := range records {
		msgs[i] = models.MessageFromRecord(r)
	}
	return store.SummarizeChats(self, msgs), nil
}
