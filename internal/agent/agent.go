// Package agent implements the concrete Agent (the agentregistry.Agent
// boundary, C7) that runs DSL-defined handlers against a forked
// execution context, bridging C4 (execctx), C5 (eval), and the
// handler-level subset of C6 (dsl) that the parser currently supports
// into the registry. Grounded on nugget-thane-ai-agent/internal/agent/loop.go's
// shutdown-channel run-loop shape, generalized from "chat turn per HTTP
// request" to "one compiled handler body per subscribed event type".
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kairei-run/kairei/internal/agentregistry"
	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/eval"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/execctx"
)

// Handler pairs a subscribed event type with the statement block to
// run each time a matching event arrives, bound to the event's
// parameters via the "event" variable in the handler's forked scope.
type Handler struct {
	On   eventbus.EventType
	Body []ast.Stmt
}

// Agent runs a fixed set of Handlers plus on_init/on_destroy blocks
// against a shared root Context, one child Context per invocation
// (via Context.Fork) so concurrent handler runs never corrupt each
// other's local bindings.
type Agent struct {
	name      string
	logger    *slog.Logger
	bus       *eventbus.Bus
	evaluator *eval.Evaluator
	root      *execctx.Context
	handlers  []Handler
	onInit    []ast.Stmt
	onDestroy []ast.Stmt

	mu sync.Mutex
}

// New creates an Agent named name, evaluating handlers/onInit/onDestroy
// against forks of root.
func New(name string, logger *slog.Logger, bus *eventbus.Bus, evaluator *eval.Evaluator, root *execctx.Context, handlers []Handler, onInit, onDestroy []ast.Stmt) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		name:      name,
		logger:    logger,
		bus:       bus,
		evaluator: evaluator,
		root:      root,
		handlers:  handlers,
		onInit:    onInit,
		onDestroy: onDestroy,
	}
}

// Name implements agentregistry.Agent.
func (a *Agent) Name() string { return a.name }

// Run subscribes to the bus and dispatches each received event to every
// Handler whose On matches the event's type, until shutdown closes.
//
// Recv blocks inside a detached inner reader that forwards (event,
// error) pairs to the outer, shutdown-aware loop over a select; the
// outer loop can return as soon as shutdown closes without waiting for
// the inner reader's current Recv to unblock. The deferred
// Receiver.Close wakes that Recv immediately, so the inner reader exits
// right after; results is buffered by one so its final send never
// blocks once the outer loop is gone.
func (a *Agent) Run(shutdown <-chan struct{}) error {
	if a.bus == nil {
		<-shutdown
		return nil
	}

	recv, _ := a.bus.Subscribe()
	defer recv.Close()

	type result struct {
		ev  eventbus.Event
		err error
	}
	results := make(chan result, 1)
	go func() {
		for {
			ev, err := recv.Recv()
			results <- result{ev, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-shutdown:
			a.publishStopped()
			return nil
		case r := <-results:
			if r.err != nil {
				var lagged eventbus.Lagged
				if errors.As(r.err, &lagged) {
					a.logger.Warn("agent run loop lagged", "agent", a.name, "dropped", lagged.Count)
					continue
				}
				a.publishStopped()
				return nil
			}
			a.dispatch(r.ev)
		}
	}
}

func (a *Agent) dispatch(ev eventbus.Event) {
	for _, h := range a.handlers {
		if h.On != ev.Type {
			continue
		}
		child := a.root.Fork(nil)
		if err := child.SetVariable("event", eval.FromEventValue(eventbus.Map(ev.Parameters))); err != nil {
			a.logger.Warn("agent handler could not bind event", "agent", a.name, "error", err)
		}
		if _, err := a.evaluator.EvalStatement(child, ast.Block{Stmts: h.Body}); err != nil {
			a.logger.Warn("agent handler failed", "agent", a.name, "event", ev.Type.Name, "error", err)
		}
	}
}

func (a *Agent) publishStopped() {
	if a.bus == nil {
		return
	}
	_ = a.bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeAgentStopped), map[string]eventbus.Value{
		"agent_id": eventbus.String(a.name),
	}))
}

// Shutdown implements agentregistry.Agent. Run's own select on the
// shutdown channel handles the actual stop; Shutdown only needs to
// respect ctx if the evaluator ever blocks indefinitely, which it does
// not for local statement evaluation, so this always returns promptly.
func (a *Agent) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// HandleLifecycleEvent implements agentregistry.Agent, running the
// matching block (if any) against a fresh fork of the root context.
func (a *Agent) HandleLifecycleEvent(evt agentregistry.LifecycleEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var body []ast.Stmt
	switch evt.Kind {
	case agentregistry.LifecycleOnInit:
		body = a.onInit
	case agentregistry.LifecycleOnDestroy:
		body = a.onDestroy
	default:
		return
	}
	if len(body) == 0 {
		return
	}
	child := a.root.Fork(nil)
	if _, err := a.evaluator.EvalStatement(child, ast.Block{Stmts: body}); err != nil {
		a.logger.Warn("agent lifecycle handler failed", "agent", a.name, "error", err)
	}
}
