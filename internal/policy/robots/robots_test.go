package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckerDisallowedPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "sentry-test"})

	allowed, err := c.Allowed(context.Background(), srv.URL+"/public/page")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = c.Allowed(context.Background(), srv.URL+"/private/page")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerCachesPerHost(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		}
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "sentry-test"})
	for i := 0; i < 5; i++ {
		allowed, err := c.Allowed(context.Background(), srv.URL+"/page")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestCheckerMissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "sentry-test"})
	allowed, err := c.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestCheckerRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	c := New(Config{UserAgent: "sentry-test"})
	_, err := c.Allowed(context.Background(), "/no-host")
	require.Error(t, err)
}
