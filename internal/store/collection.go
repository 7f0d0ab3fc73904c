// Package store holds the UI-visible projection of remote collections.
// It is written only by the synchronization façade; the presentation
// layer reads snapshots and subscribes to changes.
package store

import (
	"sort"
	"sync"
)

// Entity is any item identified by a stable key within its collection.
type Entity interface {
	EntityID() string
}

// Collection is an ordered, observed sequence of one entity type. All
// mutations are serialized under one mutex, so replace and merge calls
// for the same collection are processed one at a time in receipt order.
type Collection[T Entity] struct {
	mu      sync.Mutex
	items   []T
	epoch   uint64
	less    func(a, b T) bool
	subs    map[int]chan []T
	nextSub int
}

// NewCollection creates an empty collection. If less is non-nil the
// collection re-establishes that order after every merge, with ties
// keeping insertion order.
func NewCollection[T Entity](less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{
		less: less,
		subs: make(map[int]chan []T),
	}
}

// Begin starts a new generation and returns its token. A screen instance
// calls Begin when it appears; responses carrying an older token are
// discarded by Replace.
func (c *Collection[T]) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

// Epoch returns the current generation token.
func (c *Collection[T]) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Replace atomically swaps the visible sequence with a fresh snapshot.
// It reports false, leaving the previous snapshot intact, when the
// response belongs to a superseded generation.
func (c *Collection[T]) Replace(epoch uint64, items []T) bool {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return false
	}
	c.items = append([]T(nil), items...)
	c.resort()
	c.notifyLocked()
	c.mu.Unlock()
	return true
}

// Apply runs a local mutation against the current sequence. The façade
// uses it both for optimistic edits and for their inversions on failure.
func (c *Collection[T]) Apply(mutate func(items []T) []T) {
	c.mu.Lock()
	c.items = mutate(c.items)
	c.resort()
	c.notifyLocked()
	c.mu.Unlock()
}

// MergeChange folds one change event into the sequence by entity id.
// Applying the same event twice is a no-op after the first application:
// inserts of a present id are dropped, updates replace in place (or
// append when the entry is not yet known, since delivery is unordered),
// deletes of an absent id do nothing.
func (c *Collection[T]) MergeChange(op ChangeOp, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := item.EntityID()
	idx := c.indexOfLocked(id)
	switch op {
	case ChangeDelete:
		if idx < 0 {
			return
		}
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	case ChangeInsert:
		if idx >= 0 {
			return
		}
		c.items = append(c.items, item)
	default: // update
		if idx >= 0 {
			c.items[idx] = item
		} else {
			c.items = append(c.items, item)
		}
	}
	c.resort()
	c.notifyLocked()
}

// ReplaceItem substitutes the entry keyed by oldID with item, which may
// carry a different id. Used to reconcile a provisional entry with its
// server-confirmed form. If oldID is unknown the item is merged as an
// insert instead, covering the race where the confirmed row already
// arrived through the change channel.
func (c *Collection[T]) ReplaceItem(oldID string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	newIdx := c.indexOfLocked(item.EntityID())
	oldIdx := c.indexOfLocked(oldID)
	switch {
	case oldIdx >= 0 && newIdx >= 0 && oldIdx != newIdx:
		// Both the provisional entry and its echo are present; keep one.
		c.items[newIdx] = item
		c.items = append(c.items[:oldIdx], c.items[oldIdx+1:]...)
	case oldIdx >= 0:
		c.items[oldIdx] = item
	case newIdx >= 0:
		c.items[newIdx] = item
	default:
		c.items = append(c.items, item)
	}
	c.resort()
	c.notifyLocked()
}

// Remove deletes the entry keyed by id, reporting whether it was present.
func (c *Collection[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOfLocked(id)
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.notifyLocked()
	return true
}

// Find returns the entry keyed by id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	idx := c.indexOfLocked(id)
	if idx < 0 {
		return zero, false
	}
	return c.items[idx], true
}

// Items returns a copy of the visible sequence. Readers never observe a
// partial snapshot.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of visible entries.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Subscribe registers an observer that receives a fresh snapshot after
// every mutation. A slow observer only ever misses intermediate states,
// never the latest one. The returned func cancels the subscription.
func (c *Collection[T]) Subscribe() (<-chan []T, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan []T, 1)
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

func (c *Collection[T]) indexOfLocked(id string) int {
	for i := range c.items {
		if c.items[i].EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) resort() {
	if c.less == nil {
		return
	}
	sort.SliceStable(c.items, func(i, j int) bool { return c.less(c.items[i], c.items[j]) })
}

func (c *Collection[T]) notifyLocked() {
	snapshot := append([]T(nil), c.items...)
	for _, ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale pending snapshot and queue the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// ChangeOp mirrors the channel's operation kinds without importing the
// platform package, keeping the store presentation- and transport-agnostic.
type ChangeOp int

const (
	ChangeInsert ChangeOp = iota
	ChangeUpdate
	ChangeDelete
)
