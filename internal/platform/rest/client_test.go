package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

func TestSelectSendsAuthAndDecodesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/posts", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.ann", r.URL.Query().Get("username"))

		json.NewEncoder(w).Encode([]platform.Record{{"id": 1, "username": "ann"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key", func() string { return "tok" })
	records, err := c.Select(context.Background(), platform.Query{
		Collection: "posts",
		Filter:     platform.Eq{Column: "username", Value: "ann"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ann", records[0].String("username"))
}

func TestInsertSendsIdempotencyKeyAndDecodesRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var rec platform.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec["id"] = 7
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]platform.Record{rec})
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key", nil)
	stored, err := c.Insert(context.Background(), "likes",
		platform.Record{"user_id": "u1", "post_id": 10},
		platform.WithIdempotencyKey("key-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.Int64("id"))
}

func TestUpdateScopesByFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.10", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key", nil)
	err := c.Update(context.Background(), "posts",
		platform.Record{"like_count": 4},
		platform.Eq{Column: "id", Value: 10})
	require.NoError(t, err)
}

func TestErrorStatusMapsToKind(t *testing.T) {
	cases := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusUnauthorized, apperr.KindAuth},
		{http.StatusForbidden, apperr.KindAuth},
		{http.StatusNotFound, apperr.KindNotFound},
		{http.StatusConflict, apperr.KindConflict},
		{http.StatusBadRequest, apperr.KindValidation},
		{http.StatusBadGateway, apperr.KindTransport},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := New(srv.URL, "anon-key", nil)
		_, err := c.Select(context.Background(), platform.Query{Collection: "posts"})
		require.Error(t, err, tc.status)
		assert.Equal(t, tc.kind, apperr.KindOf(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, "anon-key", nil)
	_, err := c.Select(context.Background(), platform.Query{Collection: "posts"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.True(t, apperr.IsRetryable(err))
}
