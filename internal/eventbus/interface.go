// Package eventbus mirrors broker records onto a pub/sub transport so
// processes outside the broker can observe every chain.
package eventbus

import (
	"context"

	"eldercare-mcp/internal/core"
)

// TopicPrefix namespaces every mirrored record.
const TopicPrefix = "eldercare.events."

// Topic returns the topic records addressed to target are published on.
func Topic(target string) string { return TopicPrefix + target }

// Bus defines publish/subscribe semantics for event records.
type Bus interface {
	Publish(ctx context.Context, topic string, event core.Event) error
	Subscribe(ctx context.Context, topic string) (<-chan core.Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan core.Event, error)
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// Tap adapts a Bus to the broker's mirror hook.
type Tap struct {
	Bus Bus
}

// Mirror publishes ev on the topic of its target.
func (t Tap) Mirror(ctx context.Context, ev core.Event) error {
	return t.Bus.Publish(ctx, Topic(ev.Target), ev)
}
