package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

// FeedScope selects which posts a feed reload shows.
type FeedScope int

const (
	// FeedGlobal shows every post.
	FeedGlobal FeedScope = iota
	// FeedFriends shows posts authored by the user's accepted friends
	// and the user themself.
	FeedFriends
)

// NewFeedGeneration starts a fresh feed generation. A screen instance
// calls this when it appears so that responses still in flight for the
// previous instance are discarded instead of clobbering the new one.
func (s *Syncer) NewFeedGeneration() uint64 {
	return s.view.Feed.Begin()
}

// RefreshFeed re-runs the feed query and atomically replaces the feed
// view. On failure the previous snapshot is retained and the error is
// surfaced. The liked set is refreshed alongside so like toggles render
// correctly.
func (s *Syncer) RefreshFeed(ctx context.Context, scope FeedScope) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	epoch := s.view.Feed.Epoch()

	q := platform.Query{
		Collection: colPosts,
		Order:      []platform.OrderBy{{Column: "id", Descending: true}},
	}
	if scope == FeedFriends {
		authors, err := s.feedAuthors(ctx)
		if err != nil {
			return err
		}
		q.Filter = platform.In{Column: "username", Values: authors}
	}

	records, err := s.selectRetry(ctx, q)
	if err != nil {
		return err
	}
	posts := make([]models.Post, len(records))
	for i, r := range records {
		posts[i] = models.PostFromRecord(r)
	}

	if !s.view.Feed.Replace(epoch, posts) {
		s.log.Debug("discarding stale feed response", zap.Uint64("epoch", epoch))
		return nil
	}
	return s.refreshLiked(ctx)
}

// feedAuthors resolves the accepted-friend set for the current user and
// unions it with the user themself.
func (s *Syncer) feedAuthors(ctx context.Context) ([]any, error) {
	_, username, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	friends, err := s.AcceptedFriends(ctx)
	if err != nil {
		return nil, err
	}
	authors := make([]any, 0, len(friends)+1)
	authors = append(authors, username)
	for _, f := range friends {
		authors = append(authors, f)
	}
	return authors, nil
}

// refreshLiked reloads the set of posts the current user has liked. The
// likes rows are the source of truth for "is liked".
func (s *Syncer) refreshLiked(ctx context.Context) error {
	user, _, err := s.requireUser()
	if err != nil {
		return err
	}
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colLikes,
		Filter:     platform.Eq{Column: "user_id", Value: user.ID},
		Columns:    []string{"id", "user_id", "post_id"},
	})
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, models.LikeFromRecord(r).PostID)
	}
	s.view.Liked.Replace(ids)
	return nil
}

// LikePost records that the current user liked a post. The view state is
// updated first; the like row insert and the cached counter update are
// two independent remote writes, and any failure inverts the optimistic
// state.
func (s *Syncer) LikePost(ctx context.Context, postID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	user, _, err := s.requireUser()
	if err != nil {
		return err
	}
	if s.view.Liked.Has(postID) {
		return nil
	}
	post, ok := s.view.Feed.Find(models.Post{ID: postID}.EntityID())
	if !ok {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("post %d not in view", postID))
	}
	newCount := post.LikeCount + 1

	s.view.Liked.Add(postID)
	s.applyLikeCount(postID, newCount)
	rollback := func() {
		s.view.Liked.Remove(postID)
		s.applyLikeCount(postID, post.LikeCount)
	}

	like := models.Like{UserID: user.ID, PostID: postID}
	if err := models.Validate(like); err != nil {
		rollback()
		return err
	}
	key := uuid.NewString()
	if _, err := s.gw.Insert(ctx, colLikes, like.ToRecord(), platform.WithIdempotencyKey(key)); err != nil {
		rollback()
		return err
	}

	if err := s.gw.Update(ctx, colPosts,
		platform.Record{"like_count": newCount},
		platform.Eq{Column: "id", Value: postID}); err != nil {
		rollback()
		s.compensateLike(user.ID, postID)
		return err
	}
	return nil
}

// UnlikePost removes the current user's like from a post, clamping the
// cached counter at zero.
func (s *Syncer) UnlikePost(ctx context.Context, postID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	user, _, err := s.requireUser()
	if err != nil {
		return err
	}
	if !s.view.Liked.Has(postID) {
		return nil
	}
	post, ok := s.view.Feed.Find(models.Post{ID: postID}.EntityID())
	if !ok {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("post %d not in view", postID))
	}
	newCount := post.LikeCount - 1
	if newCount < 0 {
		newCount = 0
	}

	s.view.Liked.Remove(postID)
	s.applyLikeCount(postID, newCount)
	rollback := func() {
		s.view.Liked.Add(postID)
		s.applyLikeCount(postID, post.LikeCount)
	}

	if err := s.gw.Delete(ctx, colLikes, platform.And{
		platform.Eq{Column: "user_id", Value: user.ID},
		platform.Eq{Column: "post_id", Value: postID},
	}); err != nil {
		rollback()
		return err
	}

	if err := s.gw.Update(ctx, colPosts,
		platform.Record{"like_count": newCount},
		platform.Eq{Column: "id", Value: postID}); err != nil {
		rollback()
		return err
	}
	return nil
}

func (s *Syncer) applyLikeCount(postID, count int64) {
	s.view.Feed.Apply(func(posts []models.Post) []models.Post {
		for i := range posts {
			if posts[i].ID == postID {
				posts[i].LikeCount = count
			}
		}
		return posts
	})
}

// compensateLike makes a best-effort attempt to remove a like row whose
// counter update failed, so the fact set and the counter do not drift
// further apart. Failures are logged, not surfaced.
func (s *Syncer) compensateLike(userID string, postID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.gw.Delete(ctx, colLikes, platform.And{
		platform.Eq{Column: "user_id", Value: userID},
		platform.Eq{Column: "post_id", Value: postID},
	}); err != nil {
		s.log.Warn("like compensation failed",
			zap.Int64("post_id", postID), zap.Error(err))
	}
}

// CreatePost uploads the media, if any, then inserts the post row and
// folds the stored row into the feed view.
func (s *Syncer) CreatePost(ctx context.Context, description string, media []byte, contentType string, kind models.MediaKind, aiGenerated bool) (models.Post, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return models.Post{}, err
	}

	post := models.Post{
		Username:    username,
		Description: description,
		MediaKind:   kind,
		AIGenerated: aiGenerated,
	}
	if len(media) > 0 {
		key := uuid.NewString()
		if err := s.storage.Upload(ctx, mediaBucket, key, media, contentType); err != nil {
			return models.Post{}, err
		}
		url := s.storage.PublicURL(mediaBucket, key)
		post.ImageURL = &url
	}
	if err := models.Validate(post); err != nil {
		return models.Post{}, err
	}

	rec, err := s.gw.Insert(ctx, colPosts, post.ToRecord(), platform.WithIdempotencyKey(uuid.NewString()))
	if err != nil {
		return models.Post{}, err
	}
	stored := models.PostFromRecord(rec)
	s.view.Feed.MergeChange(changeOp(platform.ChangeInsert), stored)
	return stored, nil
}

// DeletePost removes one of the current user's posts. The feed entry is
// removed optimistically and restored if the remote delete fails.
func (s *Syncer) DeletePost(ctx context.Context, postID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return err
	}
	post, ok := s.view.Feed.Find(models.Post{ID: postID}.EntityID())
	if ok && post.Username != username {
		return apperr.New(apperr.KindValidation, "only the author can delete a post")
	}

	removed := s.view.Feed.Remove(models.Post{ID: postID}.EntityID())
	if err := s.gw.Delete(ctx, colPosts, platform.Eq{Column: "id", Value: postID}); err != nil {
		if removed {
			s.view.Feed.MergeChange(changeOp(platform.ChangeInsert), post)
		}
		return err
	}
	return nil
}
