package events

import (
	"sync"

	"github.com/penwyp/go-fullsnack/internal/util"
)

// Kind identifies what changed. Events carry no other payload: every
// subscriber re-derives its own view of the store.
type Kind int

const (
	// KindLogMutated means the log store changed in a way that may affect aggregates
	KindLogMutated Kind = iota + 1
	// KindSessionChanged means the credential state changed
	KindSessionChanged
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindLogMutated:
		return "log_mutated"
	case KindSessionChanged:
		return "session_changed"
	default:
		return "unknown"
	}
}

// Event is a change notification
type Event struct {
	Kind Kind
}

// LogMutated returns the event published after a successful mutation
func LogMutated() Event {
	return Event{Kind: KindLogMutated}
}

// SessionChanged returns the event published after a session transition
func SessionChanged() Event {
	return Event{Kind: KindSessionChanged}
}

// Handler receives events. Handlers run on the publisher's goroutine and must not block.
type Handler func(Event)

// Publisher is the publishing side of a Channel
type Publisher interface {
	Publish(ev Event)
}

// Subscriber is the subscribing side of a Channel
type Subscriber interface {
	Subscribe(kind Kind, handler Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	kind    Kind
	handler Handler
}

// Channel is an in-memory publish/subscribe channel owned by the application.
// It lives from NewChannel until Close; there is no package-level instance.
type Channel struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	closed bool
}

// NewChannel creates a new Channel instance
func NewChannel() *Channel {
	return &Channel{
		subs: make([]subscription, 0, 8),
	}
}

// Subscribe attaches handler for events of kind. The returned function detaches
// it and may be called any number of times.
func (c *Channel) Subscribe(kind Kind, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}

	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, kind: kind, handler: handler})
	util.LogDebugf("Channel: subscribed #%d to %s", id, kind)

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

func (c *Channel) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subs {
		if sub.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			util.LogDebugf("Channel: unsubscribed #%d from %s", id, sub.kind)
			return
		}
	}
}

// Publish delivers ev synchronously, in subscription order, to the handlers
// attached when Publish was called.
func (c *Channel) Publish(ev Event) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	targets := make([]Handler, 0, len(c.subs))
	for _, sub := range c.subs {
		if sub.kind == ev.Kind {
			targets = append(targets, sub.handler)
		}
	}
	c.mu.RUnlock()

	util.LogDebugf("Channel: publishing %s to %d subscribers", ev.Kind, len(targets))
	for _, handler := range targets {
		handler(ev)
	}
}

// Subscribers returns the number of handlers attached for kind
func (c *Channel) Subscribers(kind Kind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, sub := range c.subs {
		if sub.kind == kind {
			n++
		}
	}
	return n
}

// Close detaches every subscriber. Publish and Subscribe become no-ops.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.subs = nil
}
