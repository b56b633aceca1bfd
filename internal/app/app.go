// Package app assembles the broker, its collaborators and the bundled
// agents from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"eldercare-mcp/internal/agents/communication"
	"eldercare-mcp/internal/agents/decision"
	"eldercare-mcp/internal/agents/health"
	"eldercare-mcp/internal/agents/mock"
	"eldercare-mcp/internal/broker"
	"eldercare-mcp/internal/careboard"
	"eldercare-mcp/internal/config"
	"eldercare-mcp/internal/core"
	"eldercare-mcp/internal/eventbus"
	"eldercare-mcp/internal/store"
	"eldercare-mcp/internal/textgen"
)

// FallbackPatientID is used by Simulate when no patient can be found.
const FallbackPatientID = "mock-patient-123"

// Options overrides parts of the configured wiring.
type Options struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	// Store replaces the configured store; App does not close it.
	Store      store.Store
	Summarizer textgen.Summarizer
	Notifier   communication.Notifier
}

// App is a running elder-care system.
type App struct {
	Broker *broker.Broker
	Store  store.Store
	Board  careboard.Board
	Bus    eventbus.Bus

	Health        *health.Agent
	Decision      *decision.Agent
	Communication *communication.Agent
	Coordination  *mock.Agent

	logger  *slog.Logger
	closers []func() error
}

// New wires every component described by cfg.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*App, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	redisOpts := cfg.RedisOptions()

	a.Store = opts.Store
	if a.Store == nil {
		st, err := openStore(cfg, redisOpts, logger)
		if err != nil {
			return nil, err
		}
		a.Store = st
		a.closers = append(a.closers, st.Close)
	}

	var mirror broker.Mirror
	if cfg.Broker.Tap {
		bus := eventbus.NewRedisBus(redisOpts, logger)
		a.Bus = bus
		a.closers = append(a.closers, bus.Close)
		mirror = eventbus.Tap{Bus: bus}
	}
	if cfg.Board.Enabled {
		board := careboard.NewRedisBoard(redisOpts, logger)
		a.Board = board
		a.closers = append(a.closers, board.Close)
	}

	sum := opts.Summarizer
	if sum == nil {
		sum = summarizer(cfg.TextGen)
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	a.Broker = broker.New(a.Store, func(o *broker.Options) {
		o.Logger = logger
		o.Metrics = broker.MustNewMetrics(reg)
		o.Mirror = mirror
		o.PersistTimeout = cfg.Broker.PersistTimeout
		o.MaxChainDepth = cfg.Broker.MaxChainDepth
	})

	a.Health = health.New(a.Broker, sum, func(o *health.Options) {
		o.SummaryTimeout = cfg.TextGen.Timeout
		o.SummaryAttempts = cfg.TextGen.MaxAttempts
		o.Logger = logger
	})
	a.Decision = decision.New(a.Broker, func(o *decision.Options) {
		o.Logger = logger
		if a.Board != nil {
			o.Board = a.Board
		}
	})
	a.Communication = communication.New(func(o *communication.Options) {
		o.Notifier = opts.Notifier
		o.Logger = logger
	})
	a.Coordination = mock.New(core.AgentEmergencyCoord, logger)

	for name, agent := range map[string]core.Agent{
		core.AgentHealthMonitoring: a.Health,
		core.AgentCareDecision:     a.Decision,
		core.AgentCommunication:    a.Communication,
		core.AgentEmergencyCoord:   a.Coordination,
	} {
		if err := a.Broker.RegisterAgent(name, agent); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	logger.Info("eldercare system ready",
		"store", cfg.Store.Driver,
		"summarizer", cfg.TextGen.Provider,
		"tap", cfg.Broker.Tap,
		"board", cfg.Board.Enabled,
	)
	return a, nil
}

func openStore(cfg *config.Config, redisOpts *redis.Options, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case config.DriverRedis:
		return store.NewRedisStore(redisOpts, logger), nil
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func summarizer(cfg config.TextGenConfig) textgen.Summarizer {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return textgen.NewOpenAI(func(o *textgen.OpenAIOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case config.ProviderAnthropic:
		return textgen.NewAnthropic(func(o *textgen.AnthropicOptions) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case config.ProviderStatic:
		return textgen.Static{Text: cfg.StaticText}
	}
	return nil
}

// Simulation is the outcome of one simulated reading.
type Simulation struct {
	PatientID string          `json:"patient_id"`
	Analysis  health.Analysis `json:"initial_analysis"`
}

// DefaultVitals is the reading Simulate uses when none is given: a
// hypertensive crisis.
func DefaultVitals() core.Vitals {
	return core.Vitals{
		SystolicBP:  core.Float(190),
		DiastolicBP: core.Float(115),
		HeartRate:   core.Float(95),
		Notes:       "Simulated emergency for comms test",
	}
}

// Simulate feeds one reading into the health agent and returns once the
// whole chain has run. An empty patientID picks a known patient.
func (a *App) Simulate(ctx context.Context, patientID string, v *core.Vitals) Simulation {
	if patientID == "" || patientID == "any-id" {
		patientID = a.samplePatient(ctx)
	}
	reading := DefaultVitals()
	if v != nil {
		reading = *v
	}
	a.logger.Info("starting simulation", "patient_id", patientID)
	return Simulation{
		PatientID: patientID,
		Analysis:  a.Health.AnalyzeVitals(ctx, patientID, reading),
	}
}

func (a *App) samplePatient(ctx context.Context) string {
	id, err := a.Store.SamplePatientID(ctx)
	switch {
	case errors.Is(err, store.ErrNoPatients):
		a.logger.Info("no patients on record, using mock patient")
		return FallbackPatientID
	case err != nil:
		a.logger.Warn("patient lookup failed, using mock patient", "error", err)
		return FallbackPatientID
	}
	return id
}

// Close stops the agents and releases every connection App opened.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Broker != nil {
		errs = append(errs, a.Broker.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
