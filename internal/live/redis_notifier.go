package live

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel is the pub/sub channel used by RedisNotifier.
const RedisChannel = "passdesk:" + ChannelName

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisNotifier uses Redis PUBLISH / SUBSCRIBE.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier wraps client. Close closes the client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Publish implements Notifier.
func (n *RedisNotifier) Publish(ctx context.Context, userID string) error {
	if err := n.client.Publish(ctx, RedisChannel, userID).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", RedisChannel, err)
	}
	return nil
}

// Subscribe implements Notifier. go-redis resubscribes after a dropped
// connection without telling the caller, so no AllUsers is emitted here.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := n.client.Subscribe(ctx, RedisChannel)
	// Wait for the subscription confirmation so that no publish is missed
	// between Subscribe returning and the first receive.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", RedisChannel, err)
	}

	messages := pubsub.Channel()
	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

var _ Notifier = (*RedisNotifier)(nil)
