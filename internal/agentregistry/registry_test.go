package agentregistry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// fakeAgent is a minimal Agent whose behavior is controlled by the
// fields below for test purposes.
type fakeAgent struct {
	name string

	hang        bool // Shutdown never returns (ignores ctx) until forciblyKilled
	shutdownErr error

	mu         sync.Mutex
	started    bool
	stopped    bool
	lifecycles []LifecycleEvent
}

func (a *fakeAgent) Name() string { return a.name }

func (a *fakeAgent) Run(shutdown <-chan struct{}) error {
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	<-shutdown
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	return nil
}

func (a *fakeAgent) Shutdown(ctx context.Context) error {
	if a.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return a.shutdownErr
}

func (a *fakeAgent) HandleLifecycleEvent(evt LifecycleEvent) {
	a.mu.Lock()
	a.lifecycles = append(a.lifecycles, evt)
	a.mu.Unlock()
}

func newBus() *eventbus.Bus { return eventbus.New(32) }

func TestRegisterAgentPublishesAgentAdded(t *testing.T) {
	bus := newBus()
	recv, _ := bus.Subscribe()
	reg := New(nil, bus)

	if err := reg.RegisterAgent("a1", &fakeAgent{name: "a1"}); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	evt, err := recv.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if evt.Type.Name != eventbus.TypeAgentAdded {
		t.Fatalf("got event %v, want AgentAdded", evt.Type)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	reg := New(nil, newBus())
	reg.RegisterAgent("a1", &fakeAgent{name: "a1"})
	err := reg.RegisterAgent("a1", &fakeAgent{name: "a1"})
	var want AgentAlreadyExists
	if !errors.As(err, &want) {
		t.Fatalf("expected AgentAlreadyExists, got %v", err)
	}
}

func TestUnregisterMissingFails(t *testing.T) {
	reg := New(nil, newBus())
	err := reg.UnregisterAgent("missing")
	var want AgentNotFound
	if !errors.As(err, &want) {
		t.Fatalf("expected AgentNotFound, got %v", err)
	}
}

func TestRunAndGracefulShutdown(t *testing.T) {
	reg := New(nil, newBus())
	agent := &fakeAgent{name: "a1"}
	reg.RegisterAgent("a1", agent)
	if err := reg.RunAgent("a1"); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}

	// Give the goroutine a moment to mark itself started.
	time.Sleep(10 * time.Millisecond)

	if err := reg.ShutdownAgent("a1", time.Second); err != nil {
		t.Fatalf("ShutdownAgent: %v", err)
	}

	agent.mu.Lock()
	defer agent.mu.Unlock()
	if !agent.started {
		t.Error("expected agent to have started")
	}
}

// TestShutdownAllForceKillsHungAgent covers scenario S6: register 3
// agents, one of them ignores shutdown; shutdown_all(timeout=1s) must
// force-kill the hung agent and leave both maps empty.
func TestShutdownAllForceKillsHungAgent(t *testing.T) {
	reg := New(nil, newBus())

	a1 := &fakeAgent{name: "a1"}
	a2 := &fakeAgent{name: "a2", hang: true}
	a3 := &fakeAgent{name: "a3"}

	for id, a := range map[string]*fakeAgent{"a1": a1, "a2": a2, "a3": a3} {
		if err := reg.RegisterAgent(id, a); err != nil {
			t.Fatalf("RegisterAgent(%s): %v", id, err)
		}
		if err := reg.RunAgent(id); err != nil {
			t.Fatalf("RunAgent(%s): %v", id, err)
		}
	}
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	reg.ShutdownAll(time.Second)
	elapsed := time.Since(start)

	if elapsed > 3*time.Second {
		t.Fatalf("ShutdownAll took too long: %v", elapsed)
	}

	reg.mu.Lock()
	nRunning := len(reg.running)
	nAgents := len(reg.agents)
	reg.mu.Unlock()

	if nRunning != 0 || nAgents != 0 {
		t.Fatalf("expected both maps empty after shutdown_all, got running=%d agents=%d", nRunning, nAgents)
	}
}

func TestKillAgentRemovesBothMaps(t *testing.T) {
	reg := New(nil, newBus())
	reg.RegisterAgent("a1", &fakeAgent{name: "a1", hang: true})
	reg.RunAgent("a1")
	time.Sleep(5 * time.Millisecond)

	reg.KillAgent("a1")

	reg.mu.Lock()
	_, running := reg.running["a1"]
	_, exists := reg.agents["a1"]
	reg.mu.Unlock()
	if running || exists {
		t.Error("expected KillAgent to remove both the task handle and the agent entry")
	}
}

func TestBroadcastReachesAllAgents(t *testing.T) {
	reg := New(nil, newBus())
	a1 := &fakeAgent{name: "a1"}
	a2 := &fakeAgent{name: "a2"}
	reg.RegisterAgent("a1", a1)
	reg.RegisterAgent("a2", a2)

	reg.Broadcast(LifecycleEvent{Kind: LifecycleOnInit, AgentID: "system"})

	for _, a := range []*fakeAgent{a1, a2} {
		a.mu.Lock()
		n := len(a.lifecycles)
		a.mu.Unlock()
		if n != 1 {
			t.Errorf("agent %s got %d lifecycle events, want 1", a.name, n)
		}
	}
}

func TestRunBlocksUntilSystemShutdownThenShutsDownAll(t *testing.T) {
	reg := New(nil, newBus())
	reg.RegisterAgent("a1", &fakeAgent{name: "a1"})
	reg.RunAgent("a1")
	time.Sleep(5 * time.Millisecond)

	sysShutdown := make(chan struct{})
	var done int32
	go func() {
		reg.Run(sysShutdown, time.Second)
		atomic.StoreInt32(&done, 1)
	}()

	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&done) != 0 {
		t.Fatal("Run returned before system shutdown signal")
	}
	close(sysShutdown)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&done) == 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not complete after system shutdown signal")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
