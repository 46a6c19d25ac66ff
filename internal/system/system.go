// Package system implements the System orchestrator (C9): it wires the
// event bus (C1), event registry (C2), request manager (C3), agent
// registry (C7), provider registry (C8), and native features (C10)
// into one running process, and exposes the façade operations
// (RegisterAgent, SendRequest, Start, Shutdown) spec.md §4.9 names.
// Grounded on cmd/thane/main.go's runServe wiring order (config →
// logger → stores → scheduler → agent → api server), generalized from
// a fixed startup sequence into the ordered lifecycle events spec.md
// §4.9 requires a System to publish as it comes up and down.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kairei-run/kairei/internal/agentregistry"
	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/eventregistry"
	"github.com/kairei-run/kairei/internal/nativefeature"
	"github.com/kairei-run/kairei/internal/provider"
	"github.com/kairei-run/kairei/internal/requestmanager"
)

// System owns one running KAIREI process's components and their
// lifecycle. Each lifecycle method publishes the bus event spec.md
// §4.9 names for that transition, in the order a caller observing the
// bus would see them appear.
type System struct {
	logger *slog.Logger
	cfg    config.SystemConfig

	Bus       *eventbus.Bus
	Events    *eventregistry.Registry
	Requests  *requestmanager.Manager
	Agents    *agentregistry.Registry
	Providers *provider.Registry

	tick    *nativefeature.TickGenerator
	metrics *nativefeature.Collector

	shutdownCh chan struct{}
}

// New constructs a System from cfg, wiring C1-C3/C7/C8/C10 and
// publishing SystemCreated. It does not start the tick generator,
// register providers, or run any agent — call the Register* methods
// and then Start for that.
func New(logger *slog.Logger, cfg config.SystemConfig) *System {
	if logger == nil {
		logger = slog.Default()
	}

	bus := eventbus.New(cfg.EventBufferSize)
	s := &System{
		logger:     logger,
		cfg:        cfg,
		Bus:        bus,
		Events:     eventregistry.New(),
		Requests:   requestmanager.New(bus, cfg.RequestTimeout.Duration),
		Agents:     agentregistry.New(logger, bus),
		Providers:  provider.New(logger, bus),
		shutdownCh: make(chan struct{}),
	}

	s.publish(eventbus.TypeSystemCreated, nil)
	return s
}

// RegisterNativeFeatures starts the tick generator and, if configured,
// the metrics collector, publishing SystemNativeFeaturesRegistered.
// ctx bounds both components' background goroutines; cancel it (or
// call Shutdown) to stop them.
func (s *System) RegisterNativeFeatures(ctx context.Context) error {
	nf := s.cfg.NativeFeatureConfig

	s.tick = nativefeature.NewTickGenerator(s.logger, s.Bus, nf.TickInterval.Duration, nf.TickCron)
	s.tick.Start(ctx)

	if nf.MetricsEnabled {
		var store nativefeature.Store
		if nf.MetricsDBPath != "" {
			st, err := nativefeature.NewSQLiteStore(nf.MetricsDBPath)
			if err != nil {
				return fmt.Errorf("open metrics store: %w", err)
			}
			store = st
		}
		s.metrics = nativefeature.NewCollector(s.logger, s.Bus, nf.MetricsInterval.Duration, store)
		s.metrics.Start(ctx)
	}

	s.publish(eventbus.TypeSystemNativeFeaturesRegistered, nil)
	return nil
}

// RegisterProviders initializes every configured provider and selects
// the primary, publishing SystemProvidersRegistered.
func (s *System) RegisterProviders(secrets config.SecretConfig) error {
	if err := s.Providers.RegisterProviders(s.cfg.ProviderConfigs, secrets); err != nil {
		return err
	}
	s.publish(eventbus.TypeSystemProvidersRegistered, nil)
	return nil
}

// RegisterWorld publishes SystemWorldRegistered. The World is the set
// of shared, read-only facts agents are initialized against (spec.md
// §4.9); this System carries no separate world store beyond the
// execution contexts each agent already owns (C4), so this method is
// the hook point a caller seeds shared state through before agents
// start, not a component of its own.
func (s *System) RegisterWorld() {
	s.publish(eventbus.TypeSystemWorldRegistered, nil)
}

// RegisterBuiltinAgents registers agents the runtime itself provides
// (as opposed to user-authored agents loaded from a DSL program),
// publishing SystemBuiltinAgentsRegistered. KAIREI ships no built-in
// agents beyond the native features already started by
// RegisterNativeFeatures, so this is a no-op hook for now; it exists so
// the lifecycle event sequence is complete even before any built-in
// agent is added.
func (s *System) RegisterBuiltinAgents() {
	s.publish(eventbus.TypeSystemBuiltinAgentsRegistered, nil)
}

// RegisterUserAgents registers the given id→Agent pairs, built by the
// caller, publishing SystemUserAgentsRegistered. Each failed
// registration is logged and skipped rather than aborting the whole
// batch, so one malformed agent definition doesn't block the rest.
func (s *System) RegisterUserAgents(agents map[string]agentregistry.Agent) {
	for id, a := range agents {
		if err := s.Agents.RegisterAgent(id, a); err != nil {
			s.logger.Warn("user agent registration failed", "agent_id", id, "error", err)
		}
	}
	s.publish(eventbus.TypeSystemUserAgentsRegistered, nil)
}

// Start broadcasts on_init to every registered agent, runs each, and
// publishes SystemStarting / SystemStarted around that sequence.
func (s *System) Start() {
	s.publish(eventbus.TypeSystemStarting, nil)

	s.Agents.Broadcast(agentregistry.LifecycleEvent{Kind: agentregistry.LifecycleOnInit})
	for _, id := range s.Agents.AgentIDs() {
		if err := s.Agents.RunAgent(id); err != nil {
			s.logger.Warn("agent failed to start", "agent_id", id, "error", err)
		}
	}

	s.publish(eventbus.TypeSystemStarted, nil)
}

// Shutdown broadcasts on_destroy, stops every running agent, stops
// native features, shuts down every provider, and finally shuts down
// the bus itself, publishing SystemStopping / SystemStopped around the
// sequence. timeout bounds each agent's graceful-stop wait (see
// agentregistry.ShutdownAll); ctx bounds provider shutdown.
func (s *System) Shutdown(ctx context.Context, timeout time.Duration) error {
	s.publish(eventbus.TypeSystemStopping, nil)

	close(s.shutdownCh)
	s.Agents.Broadcast(agentregistry.LifecycleEvent{Kind: agentregistry.LifecycleOnDestroy})
	s.Agents.ShutdownAll(timeout)

	if s.tick != nil {
		s.tick.Stop()
	}
	if s.metrics != nil {
		s.metrics.Stop()
	}

	var firstErr error
	if err := s.Providers.Shutdown(ctx); err != nil {
		firstErr = err
	}

	s.publish(eventbus.TypeSystemStopped, nil)
	s.Bus.Shutdown()
	return firstErr
}

// Done returns a channel closed once Shutdown has been called, so a
// caller (e.g. cmd/kairei's run loop) can block until the system stops.
func (s *System) Done() <-chan struct{} { return s.shutdownCh }

// SendRequest publishes a Request event of the given type and awaits
// its Response, bounded by timeout (the request manager's default if
// zero). It is the façade entry point spec.md §4.9's send_request
// operation names, wrapping C3 in the request-shape callers outside the
// evaluator (e.g. the API layer) use.
func (s *System) SendRequest(ctx context.Context, requestType, requester, responder string, params map[string]eventbus.Value, timeout time.Duration) (eventbus.Event, error) {
	if params == nil {
		params = map[string]eventbus.Value{}
	}
	if timeout > 0 {
		params["timeout"] = eventbus.Dur(timeout)
	}
	req := eventbus.NewRequest(requestType, requester, responder, uuid.NewString(), params)
	return s.Requests.Request(ctx, req)
}

func (s *System) publish(name string, params map[string]eventbus.Value) {
	if s.Bus == nil {
		return
	}
	_ = s.Bus.Publish(eventbus.NewEvent(eventbus.SystemType(name), params))
}
