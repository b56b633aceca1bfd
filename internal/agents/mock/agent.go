// Package mock provides a stand-in agent for downstream stages that are not
// built yet, so chains reaching them still complete.
package mock

import (
	"context"
	"log/slog"
	"sync"

	"eldercare-mcp/internal/core"
)

// Agent logs and records every event it receives and never fails.
type Agent struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	received []core.Event
	stopped  bool
}

// New returns a mock agent registered under name.
func New(name string, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{name: name, logger: logger.With("component", name)}
}

// HandleEvent records ev.
func (a *Agent) HandleEvent(ctx context.Context, ev core.Event) error {
	a.logger.Info("event received, simulating downstream action",
		"event_type", ev.Type,
		"patient_id", ev.PatientID,
		"source", ev.Source,
	)
	a.mu.Lock()
	a.received = append(a.received, ev)
	a.mu.Unlock()
	return nil
}

// Received returns the events handled so far, in arrival order.
func (a *Agent) Received() []core.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Event(nil), a.received...)
}

// Stop marks the agent stopped.
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	return nil
}

// Stopped reports whether Stop was called.
func (a *Agent) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

var (
	_ core.Agent   = (*Agent)(nil)
	_ core.Stopper = (*Agent)(nil)
)
