package execctx

import (
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/value"
)

func TestVariableResolutionOrder(t *testing.T) {
	ctx := New(nil, AgentInfo{Name: "a"}, time.Second)
	if err := ctx.SetState("x", value.Int(1)); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	ctx.PushScope()
	if err := ctx.SetVariable("x", value.Int(2)); err != nil {
		t.Fatalf("SetVariable: %v", err)
	}

	got, err := ctx.GetVariable("x")
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if i, _ := got.AsInt(); i != 2 {
		t.Errorf("expected current scope to shadow shared state, got %v", got)
	}

	if err := ctx.PopScope(); err != nil {
		t.Fatalf("PopScope: %v", err)
	}
	got, err = ctx.GetVariable("x")
	if err != nil {
		t.Fatalf("GetVariable after pop: %v", err)
	}
	if i, _ := got.AsInt(); i != 1 {
		t.Errorf("expected shared state value after popping scope, got %v", got)
	}
}

func TestParentScopeResolvedInnermostFirst(t *testing.T) {
	ctx := New(nil, AgentInfo{}, time.Second)
	ctx.SetVariable("y", value.Int(10))
	ctx.PushScope()
	ctx.SetVariable("y", value.Int(20))
	ctx.PushScope()

	got, err := ctx.GetVariable("y")
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if i, _ := got.AsInt(); i != 20 {
		t.Errorf("expected innermost parent scope value 20, got %v", got)
	}
}

// TestReadOnlyBlocksStateMutation covers spec.md §8 scenario: ReadOnly
// contexts may not mutate shared state.
func TestReadOnlyBlocksStateMutation(t *testing.T) {
	ro := ReadOnly
	ctx := New(nil, AgentInfo{}, time.Second)
	ctx.SetState("counter", value.Int(0))
	child := ctx.Fork(&ro)

	err := child.SetState("counter", value.Int(1))
	if _, ok := err.(ReadOnlyViolation); !ok {
		t.Fatalf("expected ReadOnlyViolation, got %v", err)
	}

	err = child.SetVariable("counter", value.Int(1))
	if _, ok := err.(ReadOnlyViolation); !ok {
		t.Fatalf("expected ReadOnlyViolation for shadowed shared key, got %v", err)
	}

	// A fresh local name is still allowed in ReadOnly mode.
	if err := child.SetVariable("scratch", value.Int(5)); err != nil {
		t.Fatalf("expected local-only variable write to succeed, got %v", err)
	}
}

// TestForkIsolation covers spec.md §8 scenario: a child's local
// mutations never leak back to the forking parent.
func TestForkIsolation(t *testing.T) {
	ctx := New(nil, AgentInfo{}, time.Second)
	ctx.SetVariable("x", value.Int(1))

	child := ctx.Fork(nil)
	if err := child.SetVariable("x", value.Int(99)); err != nil {
		t.Fatalf("SetVariable: %v", err)
	}
	if err := child.SetVariable("only_in_child", value.Int(7)); err != nil {
		t.Fatalf("SetVariable: %v", err)
	}

	got, err := ctx.GetVariable("x")
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if i, _ := got.AsInt(); i != 1 {
		t.Errorf("parent's x mutated by child fork, got %v", got)
	}

	if _, err := ctx.GetVariable("only_in_child"); err == nil {
		t.Error("expected parent to not see child-only variable")
	}
}

func TestForkSharesState(t *testing.T) {
	ctx := New(nil, AgentInfo{}, time.Second)
	child := ctx.Fork(nil)

	if err := child.SetState("shared_counter", value.Int(42)); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	got, err := ctx.GetState("shared_counter")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if i, _ := got.AsInt(); i != 42 {
		t.Errorf("expected shared state visible to the parent, got %v", got)
	}
}

func TestGetVariableNotFound(t *testing.T) {
	ctx := New(nil, AgentInfo{}, time.Second)
	_, err := ctx.GetVariable("missing")
	if _, ok := err.(VariableNotFound); !ok {
		t.Fatalf("expected VariableNotFound, got %v", err)
	}
}

func TestPopScopeWithoutParentFails(t *testing.T) {
	ctx := New(nil, AgentInfo{}, time.Second)
	err := ctx.PopScope()
	if _, ok := err.(NoParentScope); !ok {
		t.Fatalf("expected NoParentScope, got %v", err)
	}
}

func TestSafeRwLockWriteTimeout(t *testing.T) {
	l := NewSafeRwLock(value.Int(0))
	g, err := l.ReadWithTimeout("v", time.Second)
	if err != nil {
		t.Fatalf("ReadWithTimeout: %v", err)
	}
	defer g.Release()

	_, err = l.WriteWithTimeout("v", 50*time.Millisecond)
	if _, ok := err.(LockTimeout); !ok {
		t.Fatalf("expected LockTimeout while a reader holds the lock, got %v", err)
	}
}

func TestSafeRwLockConcurrentReaders(t *testing.T) {
	l := NewSafeRwLock(value.Int(7))
	g1, err := l.ReadWithTimeout("v", time.Second)
	if err != nil {
		t.Fatalf("ReadWithTimeout: %v", err)
	}
	g2, err := l.ReadWithTimeout("v", time.Second)
	if err != nil {
		t.Fatalf("expected concurrent readers to be allowed, got %v", err)
	}
	g1.Release()
	g2.Release()
}
