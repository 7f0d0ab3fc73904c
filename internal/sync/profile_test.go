package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

func TestEnsureProfileCreatesRowOnFirstSignIn(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(_ string, record platform.Record, _ platform.InsertSettings) (platform.Record, error) {
			return record, nil
		},
	}
	s := newTestSyncer(gw, nil)

	profile, err := s.EnsureProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann", profile.Username)
	assert.Equal(t, "u-ann", profile.ID)
	assert.True(t, profile.ShowStatus)
	assert.True(t, profile.AllowNotifications)

	inserts := gw.insertCalls()
	require.Len(t, inserts, 1)
	assert.Equal(t, "profiles", inserts[0].collection)
	assert.Equal(t, "u-ann", inserts[0].settings.IdempotencyKey,
		"profile creation is keyed by the user id so a retry cannot duplicate it")
}

func TestEnsureProfileReturnsExistingRow(t *testing.T) {
	gw := &fakeGateway{
		selectFn: func(q platform.Query) ([]platform.Record, error) {
			return []platform.Record{{
				"id":       "u-ann",
				"username": "ann",
				"bio":      "hello",
			}}, nil
		},
	}
	s := newTestSyncer(gw, nil)

	profile, err := s.EnsureProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, profile.Bio)
	assert.Equal(t, "hello", *profile.Bio)
	assert.Empty(t, gw.insertCalls())
}

func TestSearchUsersUsesCaseInsensitivePattern(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)

	_, err := s.SearchUsers(context.Background(), "bo")
	require.NoError(t, err)

	require.Len(t, gw.selects, 1)
	ilike, ok := gw.selects[0].Filter.(platform.ILike)
	require.True(t, ok)
	assert.Equal(t, "username", ilike.Column)
	assert.Equal(t, "%bo%", ilike.Pattern)
}

func TestAddCommentRollsBackOptimisticEntry(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(string, platform.Record, platform.InsertSettings) (platform.Record, error) {
			return nil, apperr.New(apperr.KindAuth, "session expired")
		},
	}
	s := newTestSyncer(gw, nil)

	err := s.AddComment(context.Background(), 10, "nice shot")
	require.Error(t, err)
	assert.Equal(t, 0, s.View().Comments(10).Len())
}

func TestAddCommentConfirmsOptimisticEntry(t *testing.T) {
	gw := &fakeGateway{
		insertFn: func(_ string, record platform.Record, _ platform.InsertSettings) (platform.Record, error) {
			stored := platform.Record{"id": float64(88)}
			for k, v := range record {
				stored[k] = v
			}
			return stored, nil
		},
	}
	s := newTestSyncer(gw, nil)

	require.NoError(t, s.AddComment(context.Background(), 10, "nice shot"))

	comments := s.View().Comments(10).Items()
	require.Len(t, comments, 1)
	assert.Equal(t, int64(88), comments[0].ID)
	assert.Equal(t, "ann", comments[0].Username)
}

func TestUploadAvatarWritesProfileURL(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestSyncer(gw, nil)

	url, err := s.UploadAvatar(context.Background(), []byte{1}, "image/png")
	require.NoError(t, err)
	assert.Contains(t, url, "https://cdn.test/images/")

	updates := gw.updateCalls()
	require.Len(t, updates, 1)
	assert.Equal(t, "profiles", updates[0].collection)
	assert.Equal(t, url, updates[0].fields["avatar_url"])
}
