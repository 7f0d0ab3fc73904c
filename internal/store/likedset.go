package store

import "sync"

// LikedSet is the observed set of post ids the current user has liked.
// The likes rows are the source of truth; this set mirrors them locally
// and absorbs optimistic toggles.
type LikedSet struct {
	mu      sync.Mutex
	ids     map[int64]struct{}
	subs    map[int]chan map[int64]struct{}
	nextSub int
}

// NewLikedSet creates an empty liked set.
func NewLikedSet() *LikedSet {
	return &LikedSet{
		ids:  make(map[int64]struct{}),
		subs: make(map[int]chan map[int64]struct{}),
	}
}

// Replace swaps the whole set for a freshly fetched snapshot.
func (s *LikedSet) Replace(ids []int64) {
	s.mu.Lock()
	s.ids = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// Add marks a post as liked. Adding twice is a no-op.
func (s *LikedSet) Add(postID int64) {
	s.mu.Lock()
	s.ids[postID] = struct{}{}
	s.notifyLocked()
	s.mu.Unlock()
}

// Remove clears the liked mark for a post.
func (s *LikedSet) Remove(postID int64) {
	s.mu.Lock()
	delete(s.ids, postID)
	s.notifyLocked()
	s.mu.Unlock()
}

// Has reports whether the post is marked liked.
func (s *LikedSet) Has(postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[postID]
	return ok
}

// IDs returns a copy of the liked post ids.
func (s *LikedSet) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Subscribe registers an observer notified with a snapshot after every
// mutation. The returned func cancels the subscription.
func (s *LikedSet) Subscribe() (<-chan map[int64]struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan map[int64]struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *LikedSet) notifyLocked() {
	snapshot := make(map[int64]struct{}, len(s.ids))
	for id := range s.ids {
		snapshot[id] = struct{}{}
	}
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
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
