package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

func TestRefreshStoriesNewestFirst(t *testing.T) {
	gw := &fakeGateway{
		selectFn: func(q platform.Query) ([]platform.Record, error) {
			assert.Equal(t, "stories", q.Collection)
			require.Len(t, q.Order, 1)
			assert.True(t, q.Order[0].Descending)
			return []platform.Record{
				{"id": float64(3), "username": "bob"},
				{"id": float64(1), "username": "ann"},
			}, nil
		},
	}
	s := newTestSyncer(gw, nil)

	require.NoError(t, s.RefreshStories(context.Background()))

	stories := s.View().Stories.Items()
	require.Len(t, stories, 2)
	assert.Equal(t, int64(3), stories[0].ID)
}

func TestAddStoryUploadsThenInserts(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(_ string, record platform.Record, settings platform.InsertSettings) (platform.Record, error) {
			assert.NotEmpty(t, settings.IdempotencyKey)
			stored := platform.Record{"id": float64(5)}
			for k, v := range record {
				stored[k] = v
			}
			return stored, nil
		},
	}
	storage := &fakeStorage{}
	s := New(Deps{
		Gateway:        gw,
		Channel:        &fakeChannel{sub: newFakeSubscription()},
		Storage:        storage,
		Identity:       &fakeIdentity{user: testUser()},
		Logger:         zap.NewNop(),
		RequestTimeout: 5 * time.Second,
		ChatPollEvery:  time.Hour,
	})

	story, err := s.AddStory(context.Background(), []byte{1, 2}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(5), story.ID)
	assert.Equal(t, "ann", story.Username)
	assert.Contains(t, story.ImageURL, "https://cdn.test/images/")

	require.Len(t, storage.uploads, 1)
	assert.Contains(t, storage.uploads[0], "images/")

	stories := s.View().Stories.Items()
	require.Len(t, stories, 1)
	assert.Equal(t, int64(5), stories[0].ID)
}

func TestRefreshNotificationsScopedToUser(t *testing.T) {
	gw := &fakeGateway{
		selectFn: func(q platform.Query) ([]platform.Record, error) {
			assert.Equal(t, "notifications", q.Collection)
			assert.Equal(t, platform.Eq{Column: "user_id", Value: "u-ann"}, q.Filter)
			return []platform.Record{
				{"id": float64(2), "user_id": "u-ann", "actor_username": "bob", "kind": "like"},
			}, nil
		},
	}
	s := newTestSyncer(gw, nil)

	require.NoError(t, s.RefreshNotifications(context.Background()))

	items := s.View().Notifications.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].ActorUsername)
}

func TestRefreshNotificationsRequiresSession(t *testing.T) {
	s := newTestSyncer(&fakeGateway{}, nil)
	s.identity = &fakeIdentity{}

	err := s.RefreshNotifications(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}
