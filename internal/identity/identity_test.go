package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/ganot/forge-registry/internal/repository/mocks"
)

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","display_name":"Bob"}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second)

	acct, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, project.Account{ID: "u1", DisplayName: "Bob"}, acct)

	_, err = v.Verify(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = v.Verify(context.Background(), " ")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHTTPVerifier_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPVerifier(srv.URL, time.Second).Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUnavailable)
}

type stubVerifier struct {
	calls int
	acct  project.Account
	err   error
}

func (s *stubVerifier) Verify(context.Context, string) (project.Account, error) {
	s.calls++
	return s.acct, s.err
}

func TestCachedVerifier_Hit(t *testing.T) {
	cache := new(mocks.CacheStore)
	data, _ := json.Marshal(project.Account{ID: "u1", DisplayName: "Bob"})
	cache.On("GetCached", mock.Anything, cacheKey("tok")).Return(data, nil)
	next := &stubVerifier{}

	acct, err := NewCachedVerifier(next, cache, time.Minute, nil).Verify(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "u1", acct.ID)
	require.Zero(t, next.calls)
	cache.AssertExpectations(t)
}

func TestCachedVerifier_MissStoresResult(t *testing.T) {
	cache := new(mocks.CacheStore)
	acct := project.Account{ID: "u1", DisplayName: "Bob"}
	data, _ := json.Marshal(acct)
	cache.On("GetCached", mock.Anything, cacheKey("tok")).Return(nil, repository.ErrNotFound)
	cache.On("PutCached", mock.Anything, cacheKey("tok"), data, 5*time.Minute).Return(nil)
	next := &stubVerifier{acct: acct}

	got, err := NewCachedVerifier(next, cache, 5*time.Minute, nil).Verify(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, acct, got)
	require.Equal(t, 1, next.calls)
	cache.AssertExpectations(t)
}

func TestCachedVerifier_FailureNotCached(t *testing.T) {
	cache := new(mocks.CacheStore)
	cache.On("GetCached", mock.Anything, cacheKey("bad")).Return(nil, repository.ErrNotFound)
	next := &stubVerifier{err: ErrUnauthenticated}

	_, err := NewCachedVerifier(next, cache, time.Minute, nil).Verify(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnauthenticated)
	cache.AssertNotCalled(t, "PutCached", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCacheKeyHidesToken(t *testing.T) {
	require.NotContains(t, cacheKey("super-secret"), "super-secret")
	require.Equal(t, cacheKey("a"), cacheKey("a"))
	require.NotEqual(t, cacheKey("a"), cacheKey("b"))
}
