// Package decision implements the care-decision agent. It turns emergency
// readings into a care decision, records it on the care board and fans the
// decision out to coordination and communication.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eldercare-mcp/internal/broker"
	"eldercare-mcp/internal/careboard"
	"eldercare-mcp/internal/core"
)

// Publisher is the part of the broker the agent needs.
type Publisher interface {
	Publish(ctx context.Context, source, target string, eventType core.EventType, patientID string, payload core.Payload) broker.Result
}

// Options configures the agent.
type Options struct {
	Name                string
	CoordinationTarget  string
	CommunicationTarget string
	// Board receives the latest status of each patient; nil skips it.
	Board  careboard.Board
	Logger *slog.Logger
}

// Agent is the care-decision agent.
type Agent struct {
	pub    Publisher
	opts   Options
	logger *slog.Logger
}

// New returns an agent publishing through pub.
func New(pub Publisher, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:                core.AgentCareDecision,
		CoordinationTarget:  core.AgentEmergencyCoord,
		CommunicationTarget: core.AgentCommunication,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{pub: pub, opts: opts, logger: logger.With("component", opts.Name)}
}

// HandleEvent acts on EMERGENCY_VITALS and ignores everything else. It
// fails when neither downstream agent accepted the decision.
func (a *Agent) HandleEvent(ctx context.Context, ev core.Event) error {
	if ev.Type != core.TypeEmergencyVitals {
		a.logger.Debug("ignoring event", "event_type", ev.Type, "event_id", ev.ID)
		return nil
	}
	var p core.VitalsPayload
	switch v := ev.Payload.(type) {
	case core.VitalsPayload:
		p = v
	case core.Generic:
		p.Vitals = core.VitalsFromMap(v)
		if nested, ok := v["vitals"].(map[string]any); ok {
			p.Vitals = core.VitalsFromMap(nested)
		}
		if s, ok := v["severity"].(string); ok {
			p.Severity = core.Severity(s)
		}
		p.Reasoning, _ = v["ai_reasoning"].(string)
	case nil:
	default:
		return fmt.Errorf("emergency vitals with %s payload", v.Kind())
	}

	d := Decide(p)
	a.logger.Info("care decision taken",
		"patient_id", ev.PatientID,
		"emergency_type", d.EmergencyType,
		"severity", d.Severity,
		"ambulance", d.AmbulanceUrgency,
	)
	a.record(ctx, ev, d)

	payload := core.DecisionPayload{Decision: d}
	dispatch := a.pub.Publish(ctx, a.opts.Name, a.opts.CoordinationTarget, core.TypeEmergencyDispatch, ev.PatientID, payload)
	alert := a.pub.Publish(ctx, a.opts.Name, a.opts.CommunicationTarget, core.TypeCareAlert, ev.PatientID, payload)
	if !dispatch.Delivered() && !alert.Delivered() {
		return errors.Join(dispatch.Err, alert.Err)
	}
	for _, r := range []broker.Result{dispatch, alert} {
		if !r.Delivered() {
			a.logger.Warn("decision not delivered", "target", r.Event.Target, "error", r.Err)
		}
	}
	return nil
}

func (a *Agent) record(ctx context.Context, ev core.Event, d core.Decision) {
	if a.opts.Board == nil {
		return
	}
	ver, err := a.opts.Board.Record(ctx, careboard.Status{
		PatientID:         ev.PatientID,
		Severity:          d.Severity,
		EmergencyType:     d.EmergencyType,
		AmbulanceRequired: d.AmbulanceRequired,
		EventID:           ev.ID,
		UpdatedAt:         time.Now().UTC(),
	})
	if err != nil {
		a.logger.Warn("care board not updated", "patient_id", ev.PatientID, "error", err)
		return
	}
	a.logger.Debug("care board updated", "patient_id", ev.PatientID, "version", ver)
}

var _ core.Agent = (*Agent)(nil)
