package mock

import (
	"context"
	"testing"

	"eldercare-mcp/internal/core"
)

func TestRecordsEvents(t *testing.T) {
	a := New(core.AgentEmergencyCoord, nil)
	ev := core.NewEvent("", core.AgentCareDecision, core.AgentEmergencyCoord, core.TypeEmergencyDispatch, "p1", nil)
	if err := a.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := a.Received()
	if len(got) != 1 || got[0].ID != ev.ID {
		t.Fatalf("unexpected events %+v", got)
	}
	if err := a.Stop(context.Background()); err != nil || !a.Stopped() {
		t.Fatal("agent should be stopped")
	}
}
