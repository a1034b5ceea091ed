package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	uri, err := s.Put(context.Background(), "abc123", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "memory://abc123", uri)

	body, ok := s.Get("abc123")
	require.True(t, ok)
	require.Equal(t, []byte("<html></html>"), body)
}

func TestStorePutRequiresHash(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Put(context.Background(), "", "text/html", nil)
	require.Error(t, err)
}
