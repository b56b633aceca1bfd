package communication

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldercare-mcp/internal/broker"
	"eldercare-mcp/internal/core"
)

type recorder struct {
	mu    sync.Mutex
	sent  []Notification
	fails map[string]error
}

func (r *recorder) Notify(ctx context.Context, n Notification) error {
	if err := r.fails[n.Recipient]; err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func decisionEvent(ambulance bool) core.Event {
	return core.NewEvent("", core.AgentCareDecision, core.AgentCommunication, core.TypeCareAlert, "p1", core.DecisionPayload{
		Decision: core.Decision{
			Severity:          core.SeverityCritical,
			EmergencyType:     "Hypertensive Crisis",
			AmbulanceRequired: ambulance,
			AmbulanceUrgency:  "IMMEDIATE",
			HospitalType:      "Cardiac Center",
			ImmediateActions:  []string{"Call emergency services now"},
			MedicalSummary:    "Elderly patient, suspected Hypertensive Crisis (critical).",
		},
	})
}

func TestComposeCareAlert(t *testing.T) {
	notes := Compose(decisionEvent(true))
	require.Len(t, notes, 3)
	assert.Equal(t, RecipientFamily, notes[0].Recipient)
	assert.Equal(t, RecipientHospital, notes[1].Recipient)
	assert.Equal(t, RecipientAmbulance, notes[2].Recipient)
	for _, n := range notes {
		assert.Equal(t, "p1", n.PatientID)
		assert.NotEmpty(t, n.Message)
	}
	assert.Contains(t, notes[0].Message, "Cardiac Center")
	assert.Equal(t, UrgencyCritical, notes[1].Urgency)
	assert.Equal(t, UrgencyImmediate, notes[2].Urgency)
}

func TestComposeWithoutAmbulance(t *testing.T) {
	notes := Compose(decisionEvent(false))
	require.Len(t, notes, 2)
	assert.NotContains(t, notes[0].Message, "ambulance")
}

func TestComposeNormalLog(t *testing.T) {
	ev := core.NewEvent("", core.AgentHealthMonitoring, core.AgentCommunication, core.TypeNormalLog, "p2",
		core.VitalsPayload{Severity: core.SeverityInfo, Reasoning: "Vitals are stable."})
	notes := Compose(ev)
	require.Len(t, notes, 1)
	assert.Equal(t, RecipientFamily, notes[0].Recipient)
	assert.Equal(t, UrgencyRoutine, notes[0].Urgency)
	assert.Contains(t, notes[0].Message, "Vitals are stable.")
}

func TestComposeGenericDecision(t *testing.T) {
	ev := core.NewEvent("", "x", core.AgentCommunication, core.TypeCareAlert, "p3", core.Generic{
		"emergency_type":     "Hypoxia",
		"ambulance_required": true,
	})
	notes := Compose(ev)
	require.Len(t, notes, 3)
	assert.Contains(t, notes[0].Subject, "Hypoxia")
}

func TestComposeUnknownType(t *testing.T) {
	ev := core.NewEvent("", "x", core.AgentCommunication, core.TypeEmergencyDispatch, "p1", nil)
	assert.Empty(t, Compose(ev))
}

func TestAgentSendsThroughBroker(t *testing.T) {
	rec := &recorder{}
	b := broker.New(nil)
	require.NoError(t, b.RegisterAgent(core.AgentCommunication, New(func(o *Options) { o.Notifier = rec })))

	res := b.Publish(context.Background(), core.AgentCareDecision, core.AgentCommunication, core.TypeCareAlert, "p1",
		decisionEvent(true).Payload)
	require.True(t, res.Delivered())
	assert.Len(t, rec.sent, 3)
}

func TestAgentReportsEveryFailure(t *testing.T) {
	down := errors.New("gateway down")
	rec := &recorder{fails: map[string]error{RecipientFamily: down, RecipientHospital: down}}
	a := New(func(o *Options) { o.Notifier = rec })

	err := a.HandleEvent(context.Background(), decisionEvent(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), RecipientFamily)
	assert.Contains(t, err.Error(), RecipientHospital)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, RecipientAmbulance, rec.sent[0].Recipient)
}

func TestLogNotifierNeverFails(t *testing.T) {
	a := New()
	assert.NoError(t, a.HandleEvent(context.Background(), decisionEvent(true)))
}
