package sites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_SetsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer srv.Close()

	f := NewFetcher("cf", FetcherConfig{UserAgent: "cpbot/test"}, testLog(), nil)
	body, err := f.Get(context.Background(), kindContests, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "cpbot/test", string(body))
}

func TestFetcher_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher("at", FetcherConfig{BreakerFailures: 2, BreakerCooldown: time.Hour}, testLog(), nil)
	for range 2 {
		_, err := f.Get(context.Background(), kindContests, srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, f.State())

	_, err := f.Get(context.Background(), kindContests, srv.URL)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the site")
}

func TestFetcher_NotFoundKeepsBreakerClosed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher("at", FetcherConfig{BreakerFailures: 1}, testLog(), nil)
	for range 3 {
		_, err := f.Get(context.Background(), kindProfile, srv.URL)
		assert.Equal(t, http.StatusNotFound, statusCode(err))
	}
	assert.Equal(t, gobreaker.StateClosed, f.State())
}

func TestFetcher_NoRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/target" {
			_, _ = w.Write([]byte("followed"))
			return
		}
		http.Redirect(w, r, "/target", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	strict := NewFetcher("cc", FetcherConfig{}, testLog(), nil)
	_, err := strict.Get(context.Background(), kindProfile, srv.URL+"/start")
	assert.Equal(t, http.StatusMovedPermanently, statusCode(err))

	lenient := NewFetcher("cf", FetcherConfig{FollowRedirects: true}, testLog(), nil)
	body, err := lenient.Get(context.Background(), kindProfile, srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, "followed", string(body))
}

func TestFetchResult(t *testing.T) {
	assert.Equal(t, "ok", fetchResult(nil))
	assert.Equal(t, "open", fetchResult(gobreaker.ErrOpenState))
	assert.Equal(t, "not_found", fetchResult(&StatusError{StatusCode: 404}))
	assert.Equal(t, "error", fetchResult(&StatusError{StatusCode: 500}))
}
