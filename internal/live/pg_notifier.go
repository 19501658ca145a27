package live

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PGNotifier uses PostgreSQL NOTIFY / LISTEN on ChannelName.
type PGNotifier struct {
	db          *sql.DB
	databaseURL string
	logger      *slog.Logger
}

// NewPGNotifier publishes through db and opens a dedicated listener
// connection to databaseURL for each subscription.
func NewPGNotifier(db *sql.DB, databaseURL string, logger *slog.Logger) *PGNotifier {
	return &PGNotifier{db: db, databaseURL: databaseURL, logger: logger}
}

// Publish sends NOTIFY passport_changes with the user id as payload.
func (n *PGNotifier) Publish(ctx context.Context, userID string) error {
	if _, err := n.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChannelName, userID); err != nil {
		return fmt.Errorf("failed to notify %s: %w", ChannelName, err)
	}
	return nil
}

// Subscribe opens a pq.Listener. The listener reconnects on its own; each
// reconnect is reported to subscribers as AllUsers.
func (n *PGNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.databaseURL, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				n.logger.Warn("notification listener event", "event", int(ev), "error", err)
			}
		})
	if err := listener.Listen(ChannelName); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", ChannelName, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer listener.Close()

		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				payload := AllUsers
				// A nil notification marks a reconnect.
				if notification != nil {
					payload = notification.Extra
				}
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					n.logger.Warn("notification listener ping failed", "error", err)
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; listeners are closed with their subscription context and
// the pool belongs to the caller.
func (n *PGNotifier) Close() error {
	return nil
}

var _ Notifier = (*PGNotifier)(nil)
