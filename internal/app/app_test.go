package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldercare-mcp/internal/config"
	"eldercare-mcp/internal/core"
	"eldercare-mcp/internal/eventbus"
	"eldercare-mcp/internal/store"
	"eldercare-mcp/internal/textgen"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ELDERCARE_STORE_DRIVER", config.DriverMemory)
	t.Setenv("ELDERCARE_TEXTGEN_PROVIDER", config.ProviderNone)
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestSimulateRunsWholeChain(t *testing.T) {
	st := store.NewMemoryStore()
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), testConfig(t), func(o *Options) {
		o.Store = st
		o.Registerer = reg
		o.Summarizer = textgen.Static{Text: "Blood pressure is critically high."}
	})
	require.NoError(t, err)
	defer a.Close(context.Background())

	sim := a.Simulate(context.Background(), "", nil)

	assert.Equal(t, FallbackPatientID, sim.PatientID)
	assert.Equal(t, core.TypeEmergencyVitals, sim.Analysis.EventType)
	assert.Equal(t, core.SeverityCritical, sim.Analysis.Severity)
	assert.Equal(t, "Blood pressure is critically high.", sim.Analysis.Reasoning)
	assert.True(t, sim.Analysis.Delivered)

	events := st.Events()
	require.Len(t, events, 3)
	assert.Equal(t, core.TypeEmergencyVitals, events[0].Type)
	assert.Equal(t, core.TypeEmergencyDispatch, events[1].Type)
	assert.Equal(t, core.TypeCareAlert, events[2].Type)
	for _, ev := range events {
		assert.Equal(t, events[0].ChainID, ev.ChainID)
	}
	require.Len(t, a.Coordination.Received(), 1)

	count, err := testutil.GatherAndCount(reg, "eldercare_broker_events_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSimulateUsesKnownPatient(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.AddPatient(context.Background(), store.Patient{ID: "p-42", Name: "Asha", CreatedAt: time.Now()}))
	a, err := New(context.Background(), testConfig(t), func(o *Options) { o.Store = st })
	require.NoError(t, err)
	defer a.Close(context.Background())

	normal := core.Vitals{SystolicBP: core.Float(120), DiastolicBP: core.Float(80), HeartRate: core.Float(70)}
	sim := a.Simulate(context.Background(), "any-id", &normal)

	assert.Equal(t, "p-42", sim.PatientID)
	assert.Equal(t, core.TypeNormalLog, sim.Analysis.EventType)
	assert.Equal(t, "Automated analysis: NORMAL_LOG triggered.", sim.Analysis.Reasoning)
	assert.Len(t, st.Events(), 1)
	assert.Empty(t, a.Coordination.Received())
}

func TestSimulateSurvivesBrokenStore(t *testing.T) {
	st := store.NewMemoryStore()
	st.FailWith(store.ErrPersistence)
	a, err := New(context.Background(), testConfig(t), func(o *Options) { o.Store = st })
	require.NoError(t, err)
	defer a.Close(context.Background())

	sim := a.Simulate(context.Background(), "p1", nil)
	assert.True(t, sim.Analysis.Delivered)
	assert.Len(t, a.Coordination.Received(), 1)
}

func TestRedisWiring(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = config.DriverRedis
	cfg.Redis.Addr = s.Addr()
	cfg.Broker.Tap = true
	cfg.Board.Enabled = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	sub, err := a.Bus.Subscribe(ctx, eventbus.Topic(core.AgentCareDecision))
	require.NoError(t, err)

	sim := a.Simulate(ctx, "p1", nil)
	require.True(t, sim.Analysis.Delivered)

	select {
	case ev := <-sub:
		assert.Equal(t, core.TypeEmergencyVitals, ev.Type)
		assert.Equal(t, "p1", ev.PatientID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for mirrored event")
	}

	st, _, err := a.Board.Latest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hypertensive Crisis", st.EmergencyType)

	events, err := a.Store.ListEvents(ctx, "p1", 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestSQLiteWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = t.TempDir() + "/eldercare.db"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	sim := a.Simulate(context.Background(), "", nil)
	assert.Equal(t, FallbackPatientID, sim.PatientID)

	events, err := a.Store.ListEvents(context.Background(), FallbackPatientID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	require.NoError(t, a.Close(context.Background()))
	assert.True(t, a.Coordination.Stopped())
}
