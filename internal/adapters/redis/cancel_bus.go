package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const defaultCancelChannel = "applications:cancel"

// CancelBus broadcasts application cancellation signals over Redis pub/sub.
//
// Delivery is best-effort by construction: pub/sub has no persistence, so a
// signal published while a worker is reconnecting is lost. That is acceptable
// here because the durable store owns the cancelled status; the bus only lets
// in-flight runs stop early.
type CancelBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewCancelBus creates a CancelBus on the default channel.
func NewCancelBus(client redis.UniversalClient, logger *slog.Logger) *CancelBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelBus{
		client:  client,
		channel: defaultCancelChannel,
		logger:  logger.With("component", "cancel_bus"),
	}
}

// PublishCancel broadcasts a cancellation signal for the given application.
func (b *CancelBus) PublishCancel(ctx context.Context, applicationID string) error {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return errors.New("application id is required")
	}
	if err := b.client.Publish(ctx, b.channel, applicationID).Err(); err != nil {
		return fmt.Errorf("publish cancel: %w", err)
	}
	return nil
}

// SubscribeCancel subscribes to cancellation signals. The returned channel is
// closed when the subscription ends; the unsubscribe function is idempotent.
func (b *CancelBus) SubscribeCancel(ctx context.Context) (<-chan string, func(), error) {
	sub := b.client.Subscribe(ctx, b.channel)

	// Force the subscription to be established before returning so callers
	// do not miss signals published right after subscribing.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe cancel: %w", err)
	}

	out := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			if err := sub.Close(); err != nil {
				b.logger.Warn("close cancel subscription", "error", err)
			}
		})
	}
	return out, unsubscribe, nil
}
