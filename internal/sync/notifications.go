package sync

import (
	"context"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

// RefreshNotifications reloads the current user's notifications, newest
// first.
func (s *Syncer) RefreshNotifications(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	user, _, err := s.requireUser()
	if err != nil {
		return err
	}
	epoch := s.view.Notifications.Epoch()
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colNotifications,
		Filter:     platform.Eq{Column: "user_id", Value: user.ID},
		Order:      []platform.OrderBy{{Column: "created_at", Descending: true}},
	})
	if err != nil {
		return err
	}
	notifications := make([]models.Notification, len(records))
	for i, r := range records {
		notifications[i] = models.NotificationFromRecord(r)
	}
	s.view.Notifications.Replace(epoch, notifications)
	return nil
}
