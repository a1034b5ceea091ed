// Package pubsubnotifier publishes change notifications to Google Cloud
// Pub/Sub. The subscription channel names the topic to publish on; topics
// are resolved lazily and cached for the life of the notifier.
package pubsubnotifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

type Notifier struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func New(ctx context.Context, projectID string) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Notifier{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

type notificationMessage struct {
	EventType string         `json:"event_type"`
	SourceURL string         `json:"source_url"`
	Details   map[string]any `json:"details"`
	Time      string         `json:"event_time"`
}

func (n *Notifier) Notify(ctx context.Context, channel string, ev sentry.ChangeEvent) error {
	topic, err := n.topic(ctx, channel)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(notificationMessage{
		EventType: ev.EventType,
		SourceURL: ev.SourceURL,
		Details:   ev.Details,
		Time:      ev.Time.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	result := topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

func (n *Notifier) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.topics[name]; ok {
		return t, nil
	}
	t := n.client.Topic(name)
	exists, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking topic %s: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("topic %s does not exist", name)
	}
	n.topics[name] = t
	return t, nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	for _, t := range n.topics {
		t.Stop()
	}
	n.mu.Unlock()
	return n.client.Close()
}
