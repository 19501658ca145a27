package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// resubscribeDelay is the pause before Run subscribes again after the
// notifier closed its channel.
const resubscribeDelay = 2 * time.Second

// Broker fans notifications out to the open streams of each user.
// Each subscriber channel holds at most one pending signal, so a burst of
// changes collapses into a single refresh.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	logger *slog.Logger
}

// NewBroker returns an empty Broker.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]map[chan struct{}]struct{}),
		logger: logger,
	}
}

// Subscribe registers a stream for userID. The returned cancel function must
// be called when the stream ends.
func (b *Broker) Subscribe(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan struct{}]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
	return ch, cancel
}

// Notify signals every stream of userID. AllUsers signals every stream.
// It never blocks.
func (b *Broker) Notify(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID == AllUsers {
		for _, set := range b.subs {
			signalAll(set)
		}
		return
	}
	signalAll(b.subs[userID])
}

func signalAll(set map[chan struct{}]struct{}) {
	for ch := range set {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount returns the number of open streams.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

// Run forwards notifications from n until ctx is cancelled. When the
// notifier's channel closes, Run subscribes again and tells every stream to
// refresh.
func (b *Broker) Run(ctx context.Context, n Notifier) error {
	for {
		ch, err := n.Subscribe(ctx)
		if err != nil {
			b.logger.Error("change subscription failed", "error", err)
		} else {
			for userID := range ch {
				b.Notify(userID)
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		b.Notify(AllUsers)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}
