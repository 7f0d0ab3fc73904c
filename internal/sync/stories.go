package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

// RefreshStories reloads the stories strip, newest first.
func (s *Syncer) RefreshStories(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	epoch := s.view.Stories.Epoch()
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colStories,
		Order:      []platform.OrderBy{{Column: "id", Descending: true}},
	})
	if err != nil {
		return err
	}
	stories := make([]models.Story, len(records))
	for i, r := range records {
		stories[i] = models.StoryFromRecord(r)
	}
	s.view.Stories.Replace(epoch, stories)
	return nil
}

// AddStory uploads the image and inserts the story row, folding the
// stored row into the stories view.
func (s *Syncer) AddStory(ctx context.Context, image []byte, contentType string) (models.Story, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return models.Story{}, err
	}
	key := uuid.NewString()
	if err := s.storage.Upload(ctx, mediaBucket, key, image, contentType); err != nil {
		return models.Story{}, err
	}

	story := models.Story{Username: username, ImageURL: s.storage.PublicURL(mediaBucket, key)}
	if err := models.Validate(story); err != nil {
		return models.Story{}, err
	}
	rec, err := s.gw.Insert(ctx, colStories, story.ToRecord(), platform.WithIdempotencyKey(uuid.NewString()))
	if err != nil {
		return models.Story{}, err
	}
	stored := models.StoryFromRecord(rec)
	s.view.Stories.MergeChange(changeOp(platform.ChangeInsert), stored)
	return stored, nil
}
