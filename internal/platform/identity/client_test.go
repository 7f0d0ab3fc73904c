package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

func testToken(t *testing.T, email string, expiresAt time.Time) string {
	t.Helper()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-ann",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func sessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestSignInStoresAndPersistsSession(t *testing.T) {
	token := testToken(t, "ann@example.com", time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ann@example.com", creds["email"])
		assert.Equal(t, "secret", creds["password"])

		json.NewEncoder(w).Encode(platform.Session{
			AccessToken: token,
			User:        platform.User{ID: "u-ann", Email: "ann@example.com"},
		})
	}))
	defer srv.Close()

	path := sessionPath(t)
	c := New(srv.URL, "anon-key", path)

	session, err := c.SignIn(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, token, session.AccessToken)

	user, ok := c.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u-ann", user.ID)
	assert.Equal(t, token, c.AccessToken())

	// The session survives on disk for the next process.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSignInRejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key", sessionPath(t))
	_, err := c.SignIn(context.Background(), "ann@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	_, ok := c.CurrentUser()
	assert.False(t, ok)
	assert.Empty(t, c.AccessToken())
}

func TestNewLoadsPersistedSession(t *testing.T) {
	token := testToken(t, "ann@example.com", time.Now().Add(time.Hour))
	path := sessionPath(t)
	data, err := json.Marshal(platform.Session{
		AccessToken: token,
		User:        platform.User{ID: "u-ann", Email: "ann@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c := New("http://unused", "anon-key", path)
	user, ok := c.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", user.Email)
}

func TestNewDiscardsExpiredSession(t *testing.T) {
	token := testToken(t, "ann@example.com", time.Now().Add(-time.Minute))
	path := sessionPath(t)
	data, err := json.Marshal(platform.Session{
		AccessToken: token,
		User:        platform.User{ID: "u-ann", Email: "ann@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c := New("http://unused", "anon-key", path)
	_, ok := c.CurrentUser()
	assert.False(t, ok)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "stale session file is removed")
}

func TestSignOutClearsSessionEvenWhenRevokeFails(t *testing.T) {
	token := testToken(t, "ann@example.com", time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			json.NewEncoder(w).Encode(platform.Session{
				AccessToken: token,
				User:        platform.User{ID: "u-ann", Email: "ann@example.com"},
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	path := sessionPath(t)
	c := New(srv.URL, "anon-key", path)
	_, err := c.SignIn(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background()))

	_, ok := c.CurrentUser()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSignOutWhenAlreadySignedOut(t *testing.T) {
	c := New("http://unused", "anon-key", sessionPath(t))
	require.NoError(t, c.SignOut(context.Background()))
}
