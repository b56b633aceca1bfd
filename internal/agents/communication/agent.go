// Package communication implements the agent that notifies family,
// hospital and ambulance services about a patient's state.
package communication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eldercare-mcp/internal/core"
)

// Notifier delivers a notification to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a structured log instead of sending
// them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n.
func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification sent",
		"recipient", n.Recipient,
		"channel", n.Channel,
		"urgency", n.Urgency,
		"patient_id", n.PatientID,
		"subject", n.Subject,
		"message", n.Message,
	)
	return nil
}

// Options configures the agent.
type Options struct {
	Name     string
	Notifier Notifier
	Logger   *slog.Logger
}

// Agent is the communication agent.
type Agent struct {
	opts   Options
	logger *slog.Logger
}

// New returns an agent. Without a Notifier, notifications go to the log.
func New(optFns ...func(o *Options)) *Agent {
	opts := Options{Name: core.AgentCommunication}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", opts.Name)
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: logger}
	}
	return &Agent{opts: opts, logger: logger}
}

// HandleEvent composes and sends the notifications for ev. Every
// notification is attempted; failures are returned together.
func (a *Agent) HandleEvent(ctx context.Context, ev core.Event) error {
	notes := Compose(ev)
	if len(notes) == 0 {
		a.logger.Debug("nothing to notify", "event_type", ev.Type, "event_id", ev.ID)
		return nil
	}
	var errs []error
	for _, n := range notes {
		if err := a.opts.Notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", n.Recipient, err))
		}
	}
	if len(errs) > 0 {
		a.logger.Warn("notifications failed", "patient_id", ev.PatientID, "failed", len(errs), "total", len(notes))
	}
	return errors.Join(errs...)
}

var _ core.Agent = (*Agent)(nil)
