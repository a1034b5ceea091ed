// Package pubsub delivers extracted content to downstream systems via
// Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// message is the wire shape of one knowledge queue entry.
type message struct {
	SourceURL string `json:"source_url"`
	Content   string `json:"content"`
}

// Queue implements sentry.KnowledgeQueue on a Pub/Sub topic.
type Queue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates a Queue for the given project and topic. It verifies the topic
// exists before returning.
func New(ctx context.Context, projectID, topicID string) (*Queue, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &Queue{client: client, topic: topic}, nil
}

// Push publishes one message for the page.
func (q *Queue) Push(ctx context.Context, sourceURL, content string) error {
	data, err := json.Marshal(message{SourceURL: sourceURL, Content: content})
	if err != nil {
		return &sentry.StorageError{Op: "marshal knowledge message", Err: err}
	}
	result := q.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return &sentry.StorageError{Op: "publish knowledge message", Err: err}
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (q *Queue) Close() error {
	q.topic.Stop()
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
