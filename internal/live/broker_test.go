package live

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func received(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func empty(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return false
	default:
		return true
	}
}

func TestBroker_NotifiesOnlyThatUser(t *testing.T) {
	b := NewBroker(testLogger())
	alice, cancelA := b.Subscribe("alice")
	defer cancelA()
	bob, cancelB := b.Subscribe("bob")
	defer cancelB()

	b.Notify("alice")

	assert.True(t, received(alice))
	assert.True(t, empty(bob))
}

func TestBroker_CoalescesBursts(t *testing.T) {
	b := NewBroker(testLogger())
	ch, cancel := b.Subscribe("alice")
	defer cancel()

	for i := 0; i < 10; i++ {
		b.Notify("alice")
	}

	assert.True(t, received(ch))
	assert.True(t, empty(ch))
}

func TestBroker_AllUsers(t *testing.T) {
	b := NewBroker(testLogger())
	a1, c1 := b.Subscribe("alice")
	defer c1()
	a2, c2 := b.Subscribe("alice")
	defer c2()
	bo, c3 := b.Subscribe("bob")
	defer c3()

	b.Notify(AllUsers)

	assert.True(t, received(a1))
	assert.True(t, received(a2))
	assert.True(t, received(bo))
}

func TestBroker_CancelUnregisters(t *testing.T) {
	b := NewBroker(testLogger())
	ch, cancel := b.Subscribe("alice")
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	cancel()
	assert.Equal(t, 0, b.SubscriberCount())

	b.Notify("alice")
	assert.True(t, empty(ch))
}

func TestBroker_RunForwardsNotifierMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewMemoryNotifier()
	b := NewBroker(testLogger())
	ch, unsub := b.Subscribe("alice")
	defer unsub()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, n) }()

	// Publish until the Run goroutine has subscribed.
	require.Eventually(t, func() bool {
		_ = n.Publish(ctx, "alice")
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBroker_RunRefreshesEveryoneWhenNotifierDrops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewMemoryNotifier()
	b := NewBroker(testLogger())
	ch, unsub := b.Subscribe("bob")
	defer unsub()

	go b.Run(ctx, n)

	// Closing the notifier ends the subscription; Run reacts with AllUsers.
	require.Eventually(t, func() bool {
		n.mu.Lock()
		subscribed := len(n.subs) > 0
		n.mu.Unlock()
		return subscribed
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, n.Close())

	assert.True(t, received(ch))
}

func TestMemoryNotifier_SubscriptionEndsWithContext(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := n.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, n.Publish(context.Background(), "u1"))
	assert.Equal(t, "u1", <-ch)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
