package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
	"github.com/aisocialapp/appcore/internal/store"
)

// RefreshComments reloads a post's comments, newest first.
func (s *Syncer) RefreshComments(ctx context.Context, postID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	col := s.view.Comments(postID)
	epoch := col.Epoch()
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colComments,
		Filter:     platform.Eq{Column: "post_id", Value: postID},
		Order:      []platform.OrderBy{{Column: "created_at", Descending: true}},
	})
	if err != nil {
		return err
	}
	comments := make([]models.Comment, len(records))
	for i, r := range records {
		comments[i] = models.CommentFromRecord(r)
	}
	col.Replace(epoch, comments)
	return nil
}

// AddComment optimistically appends a comment and persists it, removing
// the optimistic entry if the insert fails.
func (s *Syncer) AddComment(ctx context.Context, postID int64, content string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return err
	}
	comment := models.Comment{
		PostID:    postID,
		Username:  username,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := models.Validate(comment); err != nil {
		return err
	}

	col := s.view.Comments(postID)
	// Provisional comments reuse id 0 until confirmed; only one can be
	// in flight per post, which matches a single compose box.
	col.MergeChange(store.ChangeInsert, comment)

	rec, err := s.gw.Insert(ctx, colComments, comment.ToRecord(), platform.WithIdempotencyKey(uuid.NewString()))
	if err != nil {
		col.Remove(comment.EntityID())
		return err
	}
	col.ReplaceItem(comment.EntityID(), models.CommentFromRecord(rec))
	return nil
}
