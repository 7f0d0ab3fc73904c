package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
	"github.com/aisocialapp/appcore/internal/store"
)

// RefreshRequests reloads the pending friend requests addressed to the
// current user.
func (s *Syncer) RefreshRequests(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, self, err := s.requireUser()
	if err != nil {
		return err
	}
	epoch := s.view.Requests.Epoch()
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colFriendships,
		Filter: platform.And{
			platform.Eq{Column: "receiver_username", Value: self},
			platform.Eq{Column: "status", Value: string(models.FriendshipPending)},
		},
	})
	if err != nil {
		return err
	}
	requests := make([]models.Friendship, len(records))
	for i, r := range records {
		requests[i] = models.FriendshipFromRecord(r)
	}
	s.view.Requests.Replace(epoch, requests)
	return nil
}

// SendFriendRequest creates a pending request to receiver. A previously
// rejected request between the pair is reopened by flipping its status
// back to pending; a pending or accepted row makes this a no-op
// conflict.
func (s *Syncer) SendFriendRequest(ctx context.Context, receiver string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, self, err := s.requireUser()
	if err != nil {
		return err
	}
	if receiver == self {
		return apperr.New(apperr.KindValidation, "cannot befriend yourself")
	}

	existing, err := s.friendshipBetween(ctx, self, receiver)
	if err != nil {
		return err
	}
	if existing != nil {
		switch existing.Status {
		case models.FriendshipPending:
			return apperr.New(apperr.KindConflict, "a pending request already exists")
		case models.FriendshipAccepted:
			return apperr.New(apperr.KindConflict, "already friends")
		default:
			return s.gw.Update(ctx, colFriendships,
				platform.Record{"status": string(models.FriendshipPending)},
				platform.Eq{Column: "id", Value: existing.ID})
		}
	}

	req := models.Friendship{Sender: self, Receiver: receiver, Status: models.FriendshipPending}
	if err := models.Validate(req); err != nil {
		return err
	}
	_, err = s.gw.Insert(ctx, colFriendships, req.ToRecord(), platform.WithIdempotencyKey(uuid.NewString()))
	return err
}

// RespondToRequest accepts or rejects a pending request addressed to the
// current user. The request disappears from the view optimistically and
// reappears if the remote status update fails.
func (s *Syncer) RespondToRequest(ctx context.Context, requestID int64, accept bool) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	status := models.FriendshipRejected
	if accept {
		status = models.FriendshipAccepted
	}

	req, present := s.view.Requests.Find(models.Friendship{ID: requestID}.EntityID())
	if present {
		s.view.Requests.Remove(req.EntityID())
	}

	err := s.gw.Update(ctx, colFriendships,
		platform.Record{"status": string(status)},
		platform.Eq{Column: "id", Value: requestID})
	if err != nil && present {
		s.view.Requests.MergeChange(store.ChangeInsert, req)
	}
	return err
}

// AcceptedFriends resolves the usernames the current user has an
// accepted friendship with, in either direction.
func (s *Syncer) AcceptedFriends(ctx context.Context) ([]string, error) {
	_, self, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colFriendships,
		Filter: platform.And{
			platform.Or{
				platform.Eq{Column: "sender_username", Value: self},
				platform.Eq{Column: "receiver_username", Value: self},
			},
			platform.Eq{Column: "status", Value: string(models.FriendshipAccepted)},
		},
	})
	if err != nil {
		return nil, err
	}
	friends := make([]string, 0, len(records))
	for _, r := range records {
		friends = append(friends, models.FriendshipFromRecord(r).Other(self))
	}
	return friends, nil
}

// friendshipBetween finds the friendship row linking the pair in either
// direction, or nil when none exists.
func (s *Syncer) friendshipBetween(ctx context.Context, a, b string) (*models.Friendship, error) {
	records, err := s.selectRetry(ctx, platform.Query{
		Collection: colFriendships,
		Filter: platform.Or{
			platform.And{
				platform.Eq{Column: "sender_username", Value: a},
				platform.Eq{Column: "receiver_username", Value: b},
			},
			platform.And{
				platform.Eq{Column: "sender_username", Value: b},
				platform.Eq{Column: "receiver_username", Value: a},
			},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	f := models.FriendshipFromRecord(records[0])
	return &f, nil
}
