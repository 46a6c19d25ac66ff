package system

import (
	"context"
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/agent"
	"github.com/kairei-run/kairei/internal/agentregistry"
	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/eval"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/execctx"
	"github.com/kairei-run/kairei/internal/value"
)

func testConfig() config.SystemConfig {
	cfg := config.SystemConfig{}
	return cfg
}

func recvUntil(t *testing.T, recv *eventbus.Receiver, want eventbus.EventType, deadline time.Duration) eventbus.Event {
	t.Helper()
	done := make(chan eventbus.Event, 1)
	go func() {
		for {
			ev, err := recv.Recv()
			if err != nil {
				return
			}
			if ev.Type == want {
				done <- ev
				return
			}
		}
	}()
	select {
	case ev := <-done:
		return ev
	case <-time.After(deadline):
		t.Fatalf("did not observe event %+v within %s", want, deadline)
		return eventbus.Event{}
	}
}

func TestStartPublishesLifecycleSequence(t *testing.T) {
	s := New(nil, testConfig())
	recv, _ := s.Bus.Subscribe()
	defer recv.Close()

	s.RegisterBuiltinAgents()
	s.RegisterWorld()
	s.Start()

	for _, want := range []string{
		eventbus.TypeSystemBuiltinAgentsRegistered,
		eventbus.TypeSystemWorldRegistered,
		eventbus.TypeSystemStarting,
		eventbus.TypeSystemStarted,
	} {
		_ = recvUntil(t, recv, eventbus.SystemType(want), time.Second)
	}
}

func TestStartAndShutdownRunsRegisteredAgent(t *testing.T) {
	s := New(nil, testConfig())

	root := execctx.New(s.Bus, execctx.AgentInfo{Name: "counter"}, time.Second)
	handlers := []agent.Handler{{
		On: eventbus.SystemType(eventbus.TypeTick),
		Body: []ast.Stmt{
			ast.Assignment{
				Target: ast.StateAccess{Path: []string{"ticks"}},
				Value:  ast.Literal{Value: value.Int(1)},
			},
		},
	}}
	a := agent.New("counter", nil, s.Bus, eval.New(s.Requests), root, handlers, nil, nil)

	if err := s.Agents.RegisterAgent("counter", a); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	s.RegisterUserAgents(map[string]agentregistry.Agent{})
	s.Start()

	if err := s.Bus.Publish(eventbus.NewEvent(eventbus.SystemType(eventbus.TypeTick), map[string]eventbus.Value{
		"delta_time": eventbus.Float(1),
	})); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		if v, err := root.GetState("ticks"); err == nil {
			if i, _ := v.AsInt(); i == 1 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("agent never observed the published tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Shutdown(context.Background(), time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done() channel should be closed after Shutdown")
	}
}

func TestSendRequestTimesOutWithNoResponder(t *testing.T) {
	s := New(nil, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.SendRequest(ctx, "ping", "tester", "nobody", nil, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error with no responder registered")
	}
}

func TestRegisterNativeFeaturesStartsTick(t *testing.T) {
	cfg := testConfig()
	cfg.NativeFeatureConfig.TickInterval = config.Duration{Duration: 5 * time.Millisecond}
	s := New(nil, cfg)

	recv, _ := s.Bus.Subscribe()
	defer recv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.RegisterNativeFeatures(ctx); err != nil {
		t.Fatalf("RegisterNativeFeatures: %v", err)
	}

	_ = recvUntil(t, recv, eventbus.SystemType(eventbus.TypeTick), time.Second)
}
