package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueRecordsMessages(t *testing.T) {
	t.Parallel()

	q := New()
	require.NoError(t, q.Push(context.Background(), "https://a", "extracted text"))
	require.NoError(t, q.Push(context.Background(), "https://b", "more text"))

	msgs := q.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "https://a", msgs[0].SourceURL)
	require.Equal(t, "extracted text", msgs[0].Content)
}
