// Package health implements the vitals-analysis agent: it classifies a
// reading with a fixed rule policy, asks a language model for a one-line
// summary and hands the result to the next agent through the broker.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"eldercare-mcp/internal/broker"
	"eldercare-mcp/internal/core"
	"eldercare-mcp/internal/textgen"
)

// Publisher is the part of the broker the agent needs.
type Publisher interface {
	Publish(ctx context.Context, source, target string, eventType core.EventType, patientID string, payload core.Payload) broker.Result
}

// Analysis is returned to the caller of AnalyzeVitals.
type Analysis struct {
	EventType core.EventType `json:"event_type"`
	Severity  core.Severity  `json:"severity"`
	Reasoning string         `json:"reasoning"`
	Target    string         `json:"target_agent"`
	Delivered bool           `json:"delivered"`
}

// Options configures the agent.
type Options struct {
	Name                string
	DecisionTarget      string
	CommunicationTarget string
	SummaryTimeout      time.Duration
	SummaryAttempts     int
	Logger              *slog.Logger
}

// Agent is the vitals-analysis agent.
type Agent struct {
	pub    Publisher
	sum    textgen.Summarizer
	opts   Options
	logger *slog.Logger
}

// New returns an agent publishing through pub. A nil summarizer makes every
// analysis use the fallback reasoning.
func New(pub Publisher, sum textgen.Summarizer, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:                core.AgentHealthMonitoring,
		DecisionTarget:      core.AgentCareDecision,
		CommunicationTarget: core.AgentCommunication,
		SummaryTimeout:      10 * time.Second,
		SummaryAttempts:     2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", opts.Name)
	a := &Agent{pub: pub, opts: opts, logger: logger}
	if sum != nil {
		a.sum = textgen.NewGuard(sum, func(o *textgen.GuardOptions) {
			o.Timeout = opts.SummaryTimeout
			o.MaxAttempts = opts.SummaryAttempts
			o.Logger = logger
		})
	}
	return a
}

// AnalyzeVitals classifies v, attaches reasoning and publishes exactly one
// event: to the decision agent when critical, otherwise to the
// communication agent. It always returns an Analysis, whatever happens
// downstream.
func (a *Agent) AnalyzeVitals(ctx context.Context, patientID string, v core.Vitals) Analysis {
	matched, eventType, severity := classify(v)
	reasoning := a.reason(ctx, patientID, v, eventType)

	target := a.opts.CommunicationTarget
	if severity == core.SeverityCritical {
		target = a.opts.DecisionTarget
	}
	a.logger.Info("vitals analyzed",
		"patient_id", patientID,
		"event_type", eventType,
		"severity", severity,
		"rule", matched,
	)

	res := a.pub.Publish(ctx, a.opts.Name, target, eventType, patientID, core.VitalsPayload{
		Vitals:    v,
		Severity:  severity,
		Reasoning: reasoning,
	})
	if !res.Delivered() {
		a.logger.Warn("analysis not delivered", "patient_id", patientID, "target", target, "delivery", res.Delivery.String(), "error", res.Err)
	}
	return Analysis{
		EventType: eventType,
		Severity:  severity,
		Reasoning: reasoning,
		Target:    target,
		Delivered: res.Delivered(),
	}
}

// HandleEvent analyzes readings that arrive through the broker.
func (a *Agent) HandleEvent(ctx context.Context, ev core.Event) error {
	if ev.Type != core.TypeVitalsReading {
		a.logger.Debug("ignoring event", "event_type", ev.Type, "event_id", ev.ID)
		return nil
	}
	var v core.Vitals
	switch p := ev.Payload.(type) {
	case core.VitalsPayload:
		v = p.Vitals
	case core.Generic:
		if nested, ok := p["vitals"].(map[string]any); ok {
			v = core.VitalsFromMap(nested)
		} else {
			v = core.VitalsFromMap(p)
		}
	case nil:
	default:
		return fmt.Errorf("vitals reading with %s payload", p.Kind())
	}
	a.AnalyzeVitals(ctx, ev.PatientID, v)
	return nil
}

// Prompt builds the summary request for one reading.
func Prompt(patientID string, v core.Vitals) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("As a medical AI, analyze these elderly patient vitals and provide a 1-sentence summary: %s. Patient ID: %s", data, patientID)
}

// FallbackReasoning is used whenever the summarizer cannot answer.
func FallbackReasoning(eventType core.EventType) string {
	return fmt.Sprintf("Automated analysis: %s triggered.", eventType)
}

func (a *Agent) reason(ctx context.Context, patientID string, v core.Vitals, eventType core.EventType) string {
	if a.sum == nil {
		return FallbackReasoning(eventType)
	}
	text, err := a.sum.Summarize(ctx, Prompt(patientID, v))
	if err != nil {
		a.logger.Warn("summary unavailable, using fallback", "patient_id", patientID, "error", err)
		return FallbackReasoning(eventType)
	}
	return text
}

var _ core.Agent = (*Agent)(nil)
