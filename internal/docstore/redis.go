package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBroker shares change notifications between server replicas. Publish
// goes through Redis pub/sub; Run pattern-subscribes to the prefix and fans
// incoming messages out to local subscribers.
type RedisBroker struct {
	client *redis.Client
	local  *Broker
	prefix string
	logger *slog.Logger
}

func NewRedisBroker(client *redis.Client, prefix string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		local:  NewBroker(),
		prefix: prefix,
		logger: logger,
	}
}

func (b *RedisBroker) Subscribe(topic string) chan []byte { return b.local.Subscribe(topic) }

func (b *RedisBroker) Unsubscribe(topic string, ch chan []byte) { b.local.Unsubscribe(topic, ch) }

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := b.client.Publish(ctx, b.prefix+topic, msg).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Run relays Redis messages until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, b.prefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s*: %w", b.prefix, err)
	}
	b.logger.Info("relaying change notifications", "pattern", b.prefix+"*")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic := strings.TrimPrefix(msg.Channel, b.prefix)
			_ = b.local.Publish(ctx, topic, []byte(msg.Payload))
		}
	}
}
