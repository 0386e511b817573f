package chat

import (
	"context"
	"sync"
)

// Recorder is a Log that keeps every posted message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Post appends msg.
func (r *Recorder) Post(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the history.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
