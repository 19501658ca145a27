// Package live delivers "this user's passports changed" signals from the
// writer to every open snapshot stream, across processes.
//
// The payload of a notification is the owning user's id. AllUsers asks every
// subscriber to refresh, which is sent after a transport reconnect because
// notifications may have been missed in between.
package live

import (
	"context"
	"sync"
)

// ChannelName is the PostgreSQL channel and the Redis channel suffix.
const ChannelName = "passport_changes"

// AllUsers is the payload that addresses every subscriber.
const AllUsers = "*"

// Notifier carries change notifications between processes.
type Notifier interface {
	// Publish announces that userID's collection changed.
	Publish(ctx context.Context, userID string) error

	// Subscribe returns a channel of user ids. The channel is closed when ctx
	// is cancelled or the subscription fails permanently.
	Subscribe(ctx context.Context) (<-chan string, error)

	Close() error
}

// MemoryNotifier is an in-process Notifier for single-binary use and tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	closed bool
}

// NewMemoryNotifier returns an empty MemoryNotifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[chan string]struct{})}
}

// Publish delivers userID to every current subscriber. Slow subscribers drop
// the notification rather than block the writer.
func (n *MemoryNotifier) Publish(_ context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- userID:
		default:
		}
	}
	return nil
}

// Subscribe implements Notifier.
func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, nil
	}
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	}()
	return ch, nil
}

// Close ends every subscription.
func (n *MemoryNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
	n.closed = true
	return nil
}

var _ Notifier = (*MemoryNotifier)(nil)
