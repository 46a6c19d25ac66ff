// Package agentregistry implements the Agent Registry (C7): agent
// registration, task lifecycle (run/shutdown/kill), and lifecycle event
// broadcast, per spec.md §4.7. Grounded on internal/scheduler.Scheduler's
// timer-map-plus-WaitGroup shutdown idiom, generalized from "one timer
// per scheduled task" to "one goroutine per running agent", with
// internal/agent/loop.go's shutdown-channel plumbing for how an
// individual agent's run loop terminates.
package agentregistry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// DefaultShutdownTimeout is used by ShutdownAgent/ShutdownAll when the
// caller passes a zero timeout.
const DefaultShutdownTimeout = 30 * time.Second

type AgentAlreadyExists struct{ ID string }

func (e AgentAlreadyExists) Error() string { return fmt.Sprintf("agent %q already exists", e.ID) }

type AgentNotFound struct{ ID string }

func (e AgentNotFound) Error() string { return fmt.Sprintf("agent %q not found", e.ID) }

type ShutdownTimeoutErr struct {
	AgentID     string
	TimeoutSecs float64
}

func (e ShutdownTimeoutErr) Error() string {
	return fmt.Sprintf("agent %q did not shut down within %.1fs", e.AgentID, e.TimeoutSecs)
}

// LifecycleKind distinguishes the moments an Agent is notified about.
type LifecycleKind int

const (
	LifecycleOnInit LifecycleKind = iota
	LifecycleOnDestroy
)

// LifecycleEvent is delivered to Agent.HandleLifecycleEvent.
type LifecycleEvent struct {
	Kind    LifecycleKind
	AgentID string
}

// Agent is the boundary every registered agent implements (spec.md §6,
// "Agent trait"). Run must select over bus events relevant to the
// agent and the shutdown channel it is given, returning when the
// channel closes; it must publish AgentStopped before returning.
type Agent interface {
	Name() string
	Run(shutdown <-chan struct{}) error
	Shutdown(ctx context.Context) error
	HandleLifecycleEvent(LifecycleEvent)
}

type runningAgent struct {
	agent    Agent
	shutdown chan struct{} // closed to request this agent's task stop
	done     chan error    // closed (possibly carrying the Run error) when the task returns
}

// Registry owns agent registration and their running tasks.
type Registry struct {
	logger *slog.Logger
	bus    *eventbus.Bus

	mu      sync.Mutex
	agents  map[string]Agent
	running map[string]*runningAgent
}

// New creates an empty Registry publishing lifecycle/error events on bus.
func New(logger *slog.Logger, bus *eventbus.Bus) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		bus:     bus,
		agents:  map[string]Agent{},
		running: map[string]*runningAgent{},
	}
}

// RegisterAgent adds agent under id, publishing AgentAdded.
func (r *Registry) RegisterAgent(id string, agent Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[id]; exists {
		return AgentAlreadyExists{ID: id}
	}
	r.agents[id] = agent
	r.publish(eventbus.SystemType(eventbus.TypeAgentAdded), map[string]eventbus.Value{
		"agent_id":   eventbus.String(id),
		"agent_name": eventbus.String(agent.Name()),
	})
	return nil
}

// AgentIDs returns the ids of every currently registered agent, in no
// particular order.
func (r *Registry) AgentIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// UnregisterAgent shuts down a running agent (if any) then removes it,
// publishing AgentRemoved.
func (r *Registry) UnregisterAgent(id string) error {
	r.mu.Lock()
	if _, ok := r.agents[id]; !ok {
		r.mu.Unlock()
		return AgentNotFound{ID: id}
	}
	_, isRunning := r.running[id]
	r.mu.Unlock()

	if isRunning {
		if err := r.ShutdownAgent(id, 0); err != nil {
			r.logger.Warn("shutdown during unregister failed, killing", "agent_id", id, "error", err)
			r.KillAgent(id)
		}
	}

	r.mu.Lock()
	delete(r.agents, id)
	r.mu.Unlock()

	r.publish(eventbus.SystemType(eventbus.TypeAgentRemoved), map[string]eventbus.Value{
		"agent_id": eventbus.String(id),
	})
	return nil
}

// RunAgent spawns a task running agent.Run, replacing (aborting) any
// prior task registered for id, and publishes AgentStarted.
func (r *Registry) RunAgent(id string) error {
	r.mu.Lock()
	agent, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return AgentNotFound{ID: id}
	}
	if prior, running := r.running[id]; running {
		close(prior.shutdown)
	}
	task := &runningAgent{agent: agent, shutdown: make(chan struct{}), done: make(chan error, 1)}
	r.running[id] = task
	r.mu.Unlock()

	go func() {
		err := agent.Run(task.shutdown)
		task.done <- err
		close(task.done)
		if err != nil {
			r.publishError("AgentError", err.Error(), id)
		}
	}()

	r.publish(eventbus.SystemType(eventbus.TypeAgentStarted), map[string]eventbus.Value{
		"agent_id": eventbus.String(id),
	})
	return nil
}

// ShutdownAgent requests a graceful stop of id's running task, waiting
// up to timeout (DefaultShutdownTimeout if zero). On timeout it returns
// ShutdownTimeoutErr without killing the task; the caller decides
// whether to escalate to KillAgent (shutdown_all does so automatically).
func (r *Registry) ShutdownAgent(id string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	r.mu.Lock()
	task, ok := r.running[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- task.agent.Shutdown(ctx) }()

	select {
	case err := <-shutdownErr:
		if err != nil {
			return err
		}
		select {
		case <-task.shutdown:
		default:
			close(task.shutdown)
		}
	case <-ctx.Done():
		return ShutdownTimeoutErr{AgentID: id, TimeoutSecs: timeout.Seconds()}
	}

	select {
	case <-task.done:
	case <-ctx.Done():
		return ShutdownTimeoutErr{AgentID: id, TimeoutSecs: timeout.Seconds()}
	}

	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
	return nil
}

// KillAgent aborts id's task unconditionally and removes both the task
// handle and the agent entry.
func (r *Registry) KillAgent(id string) {
	r.mu.Lock()
	task, ok := r.running[id]
	if ok {
		delete(r.running, id)
	}
	delete(r.agents, id)
	r.mu.Unlock()

	if ok {
		select {
		case <-task.shutdown:
		default:
			close(task.shutdown)
		}
	}
}

// ShutdownAll concurrently shuts down every running agent. Any
// individual timeout escalates to KillAgent for that id. After the
// wave completes, both maps are cleared.
func (r *Registry) ShutdownAll(timeout time.Duration) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := r.ShutdownAgent(id, timeout); err != nil {
				r.logger.Warn("force-killing agent after shutdown failure", "agent_id", id, "error", err)
				r.KillAgent(id)
			}
		}(id)
	}
	wg.Wait()

	r.mu.Lock()
	r.running = map[string]*runningAgent{}
	r.agents = map[string]Agent{}
	r.mu.Unlock()
}

// Run blocks until systemShutdown fires, then performs ShutdownAll and
// returns. It always completes (even if ShutdownAll has to kill agents).
func (r *Registry) Run(systemShutdown <-chan struct{}, timeout time.Duration) {
	<-systemShutdown
	r.ShutdownAll(timeout)
}

// Broadcast delivers a lifecycle event to every currently registered
// agent synchronously, in registration-map iteration order (unspecified
// across runs, same relaxation the evaluator's Await::Block join uses).
func (r *Registry) Broadcast(evt LifecycleEvent) {
	r.mu.Lock()
	agents := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.Unlock()
	for _, a := range agents {
		a.HandleLifecycleEvent(evt)
	}
}

func (r *Registry) publish(t eventbus.EventType, params map[string]eventbus.Value) {
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(eventbus.NewEvent(t, params))
}

func (r *Registry) publishError(errorType, message, agentID string) {
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(eventbus.NewEvent(eventbus.FailureType(errorType), map[string]eventbus.Value{
		"error_type": eventbus.String(errorType),
		"message":    eventbus.String(message),
		"agent_id":   eventbus.String(agentID),
	}))
}
