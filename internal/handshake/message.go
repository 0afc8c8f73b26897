package handshake

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MessageType discriminates the payload posted by the callback page.
type MessageType string

const (
	AuthSuccess MessageType = "AUTH_SUCCESS"
	AuthError   MessageType = "AUTH_ERROR"
)

// Message is the cross-window payload. Origin is the sender's origin and is not part of the body.
type Message struct {
	Type    MessageType `json:"type"`
	Error   string      `json:"error,omitempty"`
	Attempt string      `json:"attempt,omitempty"`
	Origin  string      `json:"-"`
}

// DecodeMessage parses a posted body and stamps it with the sender's origin.
func DecodeMessage(data []byte, origin string) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	m.Origin = origin
	return m, nil
}

// Bus fans published messages out to the current subscribers.
//
// It stands in for the window message event: the callback handler publishes, modals subscribe while an attempt is live.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Message)
}

// NewBus creates an empty [Bus].
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Message))}
}

// Subscribe registers fn and returns a function that removes it. The returned function is idempotent.
func (b *Bus) Subscribe(fn func(Message)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers m to every subscriber. Subscribers run on the caller's goroutine without the bus lock held.
func (b *Bus) Publish(m Message) {
	b.mu.Lock()
	fns := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
