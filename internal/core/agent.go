package core

import "context"

// Agent is the handler capability every registered agent provides. The
// event carries the type, patient and payload; the agent may publish further
// events through a broker it was given at construction.
type Agent interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts an ordinary function to the Agent interface.
type HandlerFunc func(ctx context.Context, ev Event) error

// HandleEvent calls f(ctx, ev).
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Stopper is implemented by agents that hold resources released at shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}
