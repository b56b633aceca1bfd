package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eldercare-mcp/internal/core"
)

// RedisBus implements Bus using Redis Pub/Sub. The client's pool replaces
// broken connections; mu guards the subscription table only.
type RedisBus struct {
	client        *redis.Client
	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
	logger        *slog.Logger
}

// NewRedisBus creates a Redis-backed bus using the given options.
func NewRedisBus(opts *redis.Options, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		client:        redis.NewClient(opts),
		subscriptions: make(map[string]*redis.PubSub),
		logger:        logger.With("component", "eventbus"),
	}
}

// Publish sends an event to a topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, event core.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// receive forwards decoded messages until ctx ends.
func (b *RedisBus) receive(ctx context.Context, pubsub *redis.PubSub) <-chan core.Event {
	ch := make(chan core.Event)
	go func() {
		defer close(ch)
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || err == redis.ErrClosed {
					return
				}
				b.logger.Warn("receive failed", "error", err)
				time.Sleep(time.Second)
				continue
			}
			var ev core.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("dropping undecodable message", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (b *RedisBus) subscribe(ctx context.Context, key string, open func(*redis.Client) *redis.PubSub) (<-chan core.Event, error) {
	ps := open(b.client)
	// Wait for the confirmation so publishes right after Subscribe are seen.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}
	b.mu.Lock()
	if old, ok := b.subscriptions[key]; ok {
		_ = old.Close()
	}
	b.subscriptions[key] = ps
	b.mu.Unlock()
	return b.receive(ctx, ps), nil
}

// Subscribe listens for events on a topic.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan core.Event, error) {
	return b.subscribe(ctx, topic, func(c *redis.Client) *redis.PubSub { return c.Subscribe(ctx, topic) })
}

// SubscribePattern listens for events on every topic matching pattern.
func (b *RedisBus) SubscribePattern(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return b.subscribe(ctx, pattern, func(c *redis.Client) *redis.PubSub { return c.PSubscribe(ctx, pattern) })
}

// Unsubscribe stops listening on a topic or pattern.
func (b *RedisBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, ok := b.subscriptions[topic]
	if !ok {
		return nil
	}
	delete(b.subscriptions, topic)
	return ps.Close()
}

// Close terminates all subscriptions and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ps := range b.subscriptions {
		_ = ps.Close()
	}
	b.subscriptions = make(map[string]*redis.PubSub)
	return b.client.Close()
}

var _ Bus = (*RedisBus)(nil)
