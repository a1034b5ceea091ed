// Package memory contains an in-memory knowledge queue for tests and local runs.
package memory

import (
	"context"
	"sync"
)

// Message captures one Push call.
type Message struct {
	SourceURL string
	Content   string
}

// Queue records pushed messages for inspection.
type Queue struct {
	mu       sync.RWMutex
	messages []Message
}

// New returns a memory Queue.
func New() *Queue {
	return &Queue{}
}

// Push records the message.
func (q *Queue) Push(_ context.Context, sourceURL, content string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, Message{SourceURL: sourceURL, Content: content})
	return nil
}

// Messages returns the recorded pushes.
func (q *Queue) Messages() []Message {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Message, len(q.messages))
	copy(out, q.messages)
	return out
}
