package agent

import (
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/agentregistry"
	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/eval"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/execctx"
	"github.com/kairei-run/kairei/internal/value"
)

func TestDispatchRunsMatchingHandlerOnly(t *testing.T) {
	bus := eventbus.New(16)
	root := execctx.New(bus, execctx.AgentInfo{Name: "greeter"}, time.Second)
	ev := eval.New(nil)

	matching := eventbus.SystemType("Poke")
	other := eventbus.SystemType("Ignore")

	handlers := []Handler{{
		On: matching,
		Body: []ast.Stmt{
			ast.Assignment{
				Target: ast.StateAccess{Path: []string{"pokes"}},
				Value:  ast.Literal{Value: value.Int(1)},
			},
		},
	}}

	a := New("greeter", nil, bus, ev, root, handlers, nil, nil)

	a.dispatch(eventbus.NewEvent(other, nil))
	if _, err := root.GetState("pokes"); err == nil {
		t.Fatal("non-matching event should not have run the handler")
	}

	a.dispatch(eventbus.NewEvent(matching, nil))
	got, err := root.GetState("pokes")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if i, _ := got.AsInt(); i != 1 {
		t.Errorf("pokes = %v, want 1", got)
	}
}

func TestRunStopsOnShutdown(t *testing.T) {
	bus := eventbus.New(16)
	root := execctx.New(bus, execctx.AgentInfo{Name: "idle"}, time.Second)
	ev := eval.New(nil)
	a := New("idle", nil, bus, ev, root, nil, nil, nil)

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- a.Run(shutdown) }()

	close(shutdown)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after shutdown closed")
	}
}

func TestHandleLifecycleEventRunsOnInitOnce(t *testing.T) {
	bus := eventbus.New(16)
	root := execctx.New(bus, execctx.AgentInfo{Name: "booter"}, time.Second)
	ev := eval.New(nil)

	onInit := []ast.Stmt{
		ast.Assignment{
			Target: ast.StateAccess{Path: []string{"booted"}},
			Value:  ast.Literal{Value: value.Bool(true)},
		},
	}

	a := New("booter", nil, bus, ev, root, nil, onInit, nil)
	a.HandleLifecycleEvent(agentregistry.LifecycleEvent{Kind: agentregistry.LifecycleOnInit, AgentID: "booter"})

	got, err := root.GetState("booted")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if b, _ := got.AsBool(); !b {
		t.Errorf("booted = %v, want true", got)
	}
}
