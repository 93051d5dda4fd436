package session

import (
	"context"
	"sync"
)

// Flash collects alerts for the next page render. It implements listview.Notifier.
type Flash struct {
	mu       sync.Mutex
	messages []string
}

// Alert queues a message.
func (f *Flash) Alert(_ context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

// Pop returns the queued messages and clears them, so every alert is shown once.
func (f *Flash) Pop() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := f.messages
	f.messages = nil
	return messages
}
