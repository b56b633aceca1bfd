// Package broker routes events between agents. Every publish is recorded
// through a Persister and then delivered synchronously to the single agent
// it names, so a causal chain runs to completion before the first Publish
// returns.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"eldercare-mcp/internal/core"
)

var (
	ErrUnknownAgent        = errors.New("unknown agent")
	ErrHandlerFailed       = errors.New("handler failed")
	ErrChainTooDeep        = errors.New("chain too deep")
	ErrInvalidRegistration = errors.New("invalid agent registration")
)

// Delivery is the outcome of the dispatch step of a publish.
type Delivery int

const (
	Delivered Delivery = iota
	UnknownAgent
	HandlerFailed
	ChainTooDeep
)

func (d Delivery) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case UnknownAgent:
		return "unknown_agent"
	case HandlerFailed:
		return "handler_failed"
	case ChainTooDeep:
		return "chain_too_deep"
	default:
		return "unknown"
	}
}

// Persister durably appends event records.
type Persister interface {
	AppendEvent(ctx context.Context, ev core.Event) error
}

// Mirror receives a copy of every record before dispatch.
type Mirror interface {
	Mirror(ctx context.Context, ev core.Event) error
}

// Result reports what happened to one published event. Persistence and
// delivery are independent: a record may be delivered without being stored
// and stored without being delivered.
type Result struct {
	Event      core.Event
	Persisted  bool
	PersistErr error
	Delivery   Delivery
	// Err explains a delivery other than Delivered.
	Err error
}

// Delivered reports whether the target handler ran and returned nil.
func (r Result) Delivered() bool { return r.Delivery == Delivered }

// Options configures a Broker.
type Options struct {
	Logger  *slog.Logger
	Metrics *Metrics
	Mirror  Mirror
	// PersistTimeout bounds each store write and mirror call; zero means no
	// bound beyond the caller's context.
	PersistTimeout time.Duration
	// MaxChainDepth caps nested dispatches within one chain; zero disables
	// the cap.
	MaxChainDepth int
}

// Broker owns the agent registry and the persistence collaborator.
type Broker struct {
	mu        sync.RWMutex
	agents    map[string]core.Agent
	persister Persister
	opts      Options
	logger    *slog.Logger
}

// New returns a Broker writing records to persister. A nil persister
// disables persistence.
func New(persister Persister, optFns ...func(o *Options)) *Broker {
	opts := Options{
		PersistTimeout: 5 * time.Second,
		MaxChainDepth:  32,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		agents:    make(map[string]core.Agent),
		persister: persister,
		opts:      opts,
		logger:    logger.With("component", "broker"),
	}
}

// RegisterAgent binds name to agent, replacing any previous binding.
// Dispatches already in flight keep the agent they resolved.
func (b *Broker) RegisterAgent(name string, agent core.Agent) error {
	if name == "" || agent == nil {
		return fmt.Errorf("%w: name %q", ErrInvalidRegistration, name)
	}
	b.mu.Lock()
	_, replaced := b.agents[name]
	b.agents[name] = agent
	b.mu.Unlock()
	b.logger.Info("agent registered", "agent", name, "replaced", replaced)
	return nil
}

// Agents returns the registered names in sorted order.
func (b *Broker) Agents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.agents)
}

type chainKey struct{}

type chain struct {
	id    string
	depth int
}

// Publish records an event from source to target and dispatches it. It
// never panics and never fails as a whole; the Result says which steps
// succeeded.
func (b *Broker) Publish(ctx context.Context, source, target string, eventType core.EventType, patientID string, payload core.Payload) Result {
	parent, _ := ctx.Value(chainKey{}).(chain)
	ev := core.NewEvent(parent.id, source, target, eventType, patientID, payload)
	log := b.logger.With(
		"event_id", ev.ID,
		"chain_id", ev.ChainID,
		"event_type", eventType,
		"source", source,
		"target", target,
		"patient_id", patientID,
	)

	res := Result{Event: ev}
	if b.persister != nil {
		res.PersistErr = b.bounded(ctx, ev.Clone(), b.persister.AppendEvent)
		res.Persisted = res.PersistErr == nil
		if res.PersistErr != nil {
			log.Warn("event not persisted, dispatching anyway", "error", res.PersistErr)
		}
	}
	if b.opts.Mirror != nil {
		if err := b.bounded(ctx, ev.Clone(), b.opts.Mirror.Mirror); err != nil {
			log.Warn("event not mirrored", "error", err)
		}
	}

	b.dispatch(ctx, parent.depth+1, ev, &res, log)
	b.opts.Metrics.observe(res)
	return res
}

// bounded runs a collaborator call under the persist timeout and turns a
// panic into an error.
func (b *Broker) bounded(ctx context.Context, ev core.Event, fn func(context.Context, core.Event) error) (err error) {
	if b.opts.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.PersistTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, ev)
}

func (b *Broker) dispatch(ctx context.Context, depth int, ev core.Event, res *Result, log *slog.Logger) {
	if b.opts.MaxChainDepth > 0 && depth > b.opts.MaxChainDepth {
		res.Delivery = ChainTooDeep
		res.Err = fmt.Errorf("%w: depth %d exceeds %d", ErrChainTooDeep, depth, b.opts.MaxChainDepth)
		log.Error("event dropped", "error", res.Err)
		return
	}

	b.mu.RLock()
	agent, ok := b.agents[ev.Target]
	b.mu.RUnlock()
	if !ok {
		res.Delivery = UnknownAgent
		res.Err = fmt.Errorf("%w: %q", ErrUnknownAgent, ev.Target)
		log.Error("target agent not registered", "error", res.Err)
		return
	}

	hctx := context.WithValue(ctx, chainKey{}, chain{id: ev.ChainID, depth: depth})
	start := time.Now()
	// The handler gets its own copy so it cannot alter the stored record.
	err := invoke(hctx, agent, ev.Clone())
	if m := b.opts.Metrics; m != nil {
		m.dispatchDuration.WithLabelValues(ev.Target).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		res.Delivery = HandlerFailed
		res.Err = fmt.Errorf("%w: %s: %w", ErrHandlerFailed, ev.Target, err)
		log.Error("handler failed", "error", err, "depth", depth)
		return
	}
	res.Delivery = Delivered
	log.Info("event delivered", "depth", depth, "persisted", res.Persisted)
}

func invoke(ctx context.Context, agent core.Agent, ev core.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return agent.HandleEvent(ctx, ev)
}

// Shutdown stops every registered agent that implements core.Stopper.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.mu.RLock()
	var stoppers []core.Stopper
	for _, name := range sortedKeys(b.agents) {
		if s, ok := b.agents[name].(core.Stopper); ok {
			stoppers = append(stoppers, s)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, s := range stoppers {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]core.Agent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
