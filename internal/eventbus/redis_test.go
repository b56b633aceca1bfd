package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"eldercare-mcp/internal/core"
)

func TestPublishSubscribe(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	bus := NewRedisBus(&redis.Options{Addr: s.Addr()}, nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, Topic(core.AgentCareDecision))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ev := core.NewEvent("", core.AgentHealthMonitoring, core.AgentCareDecision, core.TypeEmergencyVitals, "p1",
		core.VitalsPayload{Severity: core.SeverityCritical})
	if err := (Tap{Bus: bus}).Mirror(ctx, ev); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	select {
	case got := <-ch:
		if got.ID != ev.ID {
			t.Fatalf("expected %s got %s", ev.ID, got.ID)
		}
		p, ok := got.Payload.(core.VitalsPayload)
		if !ok || p.Severity != core.SeverityCritical {
			t.Fatalf("unexpected payload %#v", got.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPatternSubscribe(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	bus := NewRedisBus(&redis.Options{Addr: s.Addr()}, nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.SubscribePattern(ctx, TopicPrefix+"*")
	if err != nil {
		t.Fatalf("subscribe pattern: %v", err)
	}
	ev := core.NewEvent("", core.AgentCareDecision, core.AgentCommunication, core.TypeCareAlert, "p2", nil)
	if err := bus.Publish(ctx, Topic(ev.Target), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case got := <-ch:
		if got.Target != core.AgentCommunication {
			t.Fatalf("unexpected target %q", got.Target)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pattern event")
	}
	if err := bus.Unsubscribe(ctx, TopicPrefix+"*"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
}
