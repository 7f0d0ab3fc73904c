package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

// EnsureProfile returns the current user's profile, creating the row on
// first sign-in.
func (s *Syncer) EnsureProfile(ctx context.Context) (models.Profile, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	user, username, err := s.requireUser()
	if err != nil {
		return models.Profile{}, err
	}
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colProfiles,
		Filter:     platform.Eq{Column: "username", Value: username},
		Limit:      1,
	})
	if err != nil {
		return models.Profile{}, err
	}
	if len(records) > 0 {
		return models.ProfileFromRecord(records[0]), nil
	}

	profile := models.Profile{
		ID:                 user.ID,
		Username:           username,
		MessagePermission:  models.MessagesFromEveryone,
		ShowStatus:         true,
		AllowNotifications: true,
	}
	if err := models.Validate(profile); err != nil {
		return models.Profile{}, err
	}
	rec, err := s.gw.Insert(ctx, colProfiles, profile.ToRecord(), platform.WithIdempotencyKey(user.ID))
	if err != nil {
		return models.Profile{}, err
	}
	return models.ProfileFromRecord(rec), nil
}

// UpdateSettings writes the privacy and notification toggles of the
// current user's profile.
func (s *Syncer) UpdateSettings(ctx context.Context, isPrivate bool, perm models.MessagePermission, showStatus, allowNotifications bool) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.gw.Update(ctx, colProfiles, platform.Record{
		"is_private":          isPrivate,
		"message_permission":  string(perm),
		"show_status":         showStatus,
		"allow_notifications": allowNotifications,
	}, platform.Eq{Column: "username", Value: username})
}

// UploadAvatar stores the image and points the profile's avatar at its
// public URL.
func (s *Syncer) UploadAvatar(ctx context.Context, image []byte, contentType string) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := s.storage.Upload(ctx, mediaBucket, key, image, contentType); err != nil {
		return "", err
	}
	url := s.storage.PublicURL(mediaBucket, key)
	err = s.gw.Update(ctx, colProfiles,
		platform.Record{"avatar_url": url},
		platform.Eq{Column: "username", Value: username})
	if err != nil {
		return "", err
	}
	return url, nil
}

// SearchUsers finds profiles whose username matches the query substring,
// case-insensitively.
func (s *Syncer) SearchUsers(ctx context.Context, query string) ([]models.Profile, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colProfiles,
		Filter:     platform.ILike{Column: "username", Pattern: "%" + query + "%"},
	})
	if err != nil {
		return nil, err
	}
	profiles := make([]models.Profile, len(records))
	for i, r := range records {
		profiles[i] = models.ProfileFromRecord(r)
	}
	return profiles, nil
}

// MyPosts fetches the current user's posts, newest first.
func (s *Syncer) MyPosts(ctx context.Context) ([]models.Post, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, username, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colPosts,
		Filter:     platform.Eq{Column: "username", Value: username},
		Order:      []platform.OrderBy{{Column: "id", Descending: true}},
	})
	if err != nil {
		return nil, err
	}
	posts := make([]models.Post, len(records))
	for i, r := range records {
		posts[i] = models.PostFromRecord(r)
	}
	return posts, nil
}
