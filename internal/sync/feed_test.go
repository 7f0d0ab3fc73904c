package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

func postRecord(id int64, username string, likes int64) platform.Record {
	return platform.Record{
		"id":         float64(id),
		"username":   username,
		"like_count": float64(likes),
		"media_kind": "image",
	}
}

func friendshipRecord(id int64, sender, receiver, status string) platform.Record {
	return platform.Record{
		"id":                float64(id),
		"sender_username":   sender,
		"receiver_username": receiver,
		"status":            status,
	}
}

// seedFeed loads the view with one post so like operations have a target.
func seedFeed(t *testing.T, s *Syncer, posts ...models.Post) {
	t.Helper()
	require.True(t, s.view.Feed.Replace(s.view.Feed.Epoch(), posts))
}

func TestLikePostHappyPath(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 10, Username: "bob", LikeCount: 3})

	require.NoError(t, s.LikePost(context.Background(), 10))

	post, ok := s.view.Feed.Find("10")
	require.True(t, ok)
	assert.Equal(t, int64(4), post.LikeCount)
	assert.True(t, s.view.Liked.Has(10))

	inserts := gw.insertCalls()
	require.Len(t, inserts, 1)
	assert.Equal(t, "likes", inserts[0].collection)
	assert.Equal(t, "u-ann", inserts[0].record["user_id"])
	assert.NotEmpty(t, inserts[0].settings.IdempotencyKey, "like insert must carry an idempotency key")

	updates := gw.updateCalls()
	require.Len(t, updates, 1)
	assert.Equal(t, "posts", updates[0].collection)
	assert.Equal(t, int64(4), updates[0].fields["like_count"])
}

func TestLikePostRollsBackWhenInsertFails(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(string, platform.Record, platform.InsertSettings) (platform.Record, error) {
			return nil, apperr.New(apperr.KindConflict, "duplicate like")
		},
	}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 10, Username: "bob", LikeCount: 3})

	err := s.LikePost(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	post, _ := s.view.Feed.Find("10")
	assert.Equal(t, int64(3), post.LikeCount, "optimistic count must be inverted")
	assert.False(t, s.view.Liked.Has(10))
}

func TestLikePostCompensatesWhenCounterUpdateFails(t *testing.T) {
	gw := &fakeGateway{
		updateFn: func(string, platform.Record, platform.Filter) error {
			return apperr.New(apperr.KindTransport, "counter write lost")
		},
	}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 10, Username: "bob", LikeCount: 3})

	require.Error(t, s.LikePost(context.Background(), 10))

	post, _ := s.view.Feed.Find("10")
	assert.Equal(t, int64(3), post.LikeCount)
	assert.False(t, s.view.Liked.Has(10))

	// The orphaned like row is cleaned up best-effort.
	deletes := gw.deleteCalls()
	require.Len(t, deletes, 1)
	assert.Equal(t, "likes", deletes[0].collection)
}

func TestLikePostAlreadyLikedIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 10, Username: "bob", LikeCount: 3})
	s.view.Liked.Add(10)

	require.NoError(t, s.LikePost(context.Background(), 10))
	assert.Empty(t, gw.insertCalls())
}

func TestUnlikePostClampsCounterAtZero(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 10, Username: "bob", LikeCount: 0})
	s.view.Liked.Add(10)

	require.NoError(t, s.UnlikePost(context.Background(), 10))

	post, _ := s.view.Feed.Find("10")
	assert.Equal(t, int64(0), post.LikeCount)
	updates := gw.updateCalls()
	require.Len(t, updates, 1)
	assert.Equal(t, int64(0), updates[0].fields["like_count"])
}

func TestRefreshFeedFriendsScopeFiltersAuthors(t *testing.T) {
	gw := &fakeGateway{}
	gw.selectFn = func(q platform.Query) ([]platform.Record, error) {
		switch q.Collection {
		case "friendships":
			return []platform.Record{
				friendshipRecord(1, "ann", "bea", "accepted"),
				friendshipRecord(2, "cal", "ann", "accepted"),
			}, nil
		case "posts":
			return []platform.Record{
				postRecord(3, "bea", 0),
				postRecord(2, "ann", 0),
			}, nil
		case "likes":
			return nil, nil
		default:
			return nil, nil
		}
	}
	s := newTestSyncer(gw, nil)

	require.NoError(t, s.RefreshFeed(context.Background(), FeedFriends))

	var postQuery *platform.Query
	for i := range gw.selects {
		if gw.selects[i].Collection == "posts" {
			postQuery = &gw.selects[i]
		}
	}
	require.NotNil(t, postQuery)
	in, ok := postQuery.Filter.(platform.In)
	require.True(t, ok, "friends scope must filter posts by author")
	assert.Equal(t, "username", in.Column)
	assert.ElementsMatch(t, []any{"ann", "bea", "cal"}, in.Values)

	assert.Equal(t, 2, s.view.Feed.Len())
}

func TestRefreshFeedDiscardsSupersededResponse(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)
	gw.selectFn = func(q platform.Query) ([]platform.Record, error) {
		if q.Collection == "posts" {
			// A new screen generation starts while this response is in
			// flight.
			s.NewFeedGeneration()
			return []platform.Record{postRecord(1, "bob", 0)}, nil
		}
		return nil, nil
	}

	require.NoError(t, s.RefreshFeed(context.Background(), FeedGlobal))
	assert.Equal(t, 0, s.view.Feed.Len(), "stale response must not clobber the new generation")
}

func TestCreatePostUploadsMediaAndMergesStoredRow(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(_ string, record platform.Record, _ platform.InsertSettings) (platform.Record, error) {
			stored := platform.Record{"id": float64(77)}
			for k, v := range record {
				stored[k] = v
			}
			return stored, nil
		},
	}
	s := newTestSyncer(gw, nil)

	post, err := s.CreatePost(context.Background(), "sunset", []byte{1, 2}, "image/png", models.MediaImage, false)
	require.NoError(t, err)
	assert.Equal(t, int64(77), post.ID)
	require.NotNil(t, post.ImageURL)
	assert.Contains(t, *post.ImageURL, "https://cdn.test/images/")

	_, ok := s.view.Feed.Find("77")
	assert.True(t, ok)
}

func TestDeletePostRestoresViewOnFailure(t *testing.T) {
	gw := &fakeGateway{
		deleteFn: func(string, platform.Filter) error {
			return apperr.New(apperr.KindTransport, "gone away")
		},
	}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 5, Username: "ann"})

	require.Error(t, s.DeletePost(context.Background(), 5))
	_, ok := s.view.Feed.Find("5")
	assert.True(t, ok, "failed delete must restore the post")
}

func TestDeletePostRejectsForeignPost(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)
	seedFeed(t, s, models.Post{ID: 5, Username: "bob"})

	err := s.DeletePost(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, gw.deleteCalls())
}
