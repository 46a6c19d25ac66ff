package eval

import (
	"testing"
	"time"

	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/execctx"
	"github.com/kairei-run/kairei/internal/requestmanager"
	"github.com/kairei-run/kairei/internal/value"
)

func newCtx(t *testing.T, bus *eventbus.Bus) *execctx.Context {
	t.Helper()
	return execctx.New(bus, execctx.AgentInfo{Name: "tester"}, time.Second)
}

func TestAssignmentToVariable(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)

	stmt := ast.Assignment{Target: ast.Variable{Name: "x"}, Value: ast.Literal{Value: value.Int(5)}}
	if _, err := ev.EvalStatement(c, stmt); err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	got, err := c.GetVariable("x")
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if i, _ := got.AsInt(); i != 5 {
		t.Errorf("got %v, want 5", got)
	}
}

func TestAssignmentToStateDottedFallback(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)

	stmt := ast.Assignment{
		Target: ast.StateAccess{Path: []string{"user", "age"}},
		Value:  ast.Literal{Value: value.Int(30)},
	}
	if _, err := ev.EvalStatement(c, stmt); err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	got, err := ev.EvalExpression(c, ast.StateAccess{Path: []string{"user", "age"}})
	if err != nil {
		t.Fatalf("EvalExpression: %v", err)
	}
	if i, _ := got.AsInt(); i != 30 {
		t.Errorf("got %v, want 30", got)
	}
}

func TestIfRequiresBoolean(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	stmt := ast.If{Cond: ast.Literal{Value: value.Int(1)}}
	_, err := ev.EvalStatement(c, stmt)
	if _, ok := err.(TypeError); !ok {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestIfBranching(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	stmt := ast.If{
		Cond: ast.Literal{Value: value.Bool(true)},
		Then: []ast.Stmt{ast.ExprStmt{Expr: ast.Literal{Value: value.Str("then")}}},
		Else: []ast.Stmt{ast.ExprStmt{Expr: ast.Literal{Value: value.Str("else")}}},
	}
	r, err := ev.EvalStatement(c, stmt)
	if err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	if s, _ := r.Value.AsString(); s != "then" {
		t.Errorf("got %v, want then branch", r.Value)
	}
}

func TestBlockPropagatesControl(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	block := ast.Block{Stmts: []ast.Stmt{
		ast.Return{Value: ast.Literal{Value: value.Int(1)}},
		ast.ExprStmt{Expr: ast.Literal{Value: value.Int(2)}},
	}}
	r, err := ev.EvalStatement(c, block)
	if err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	if r.Control != CtrlReturn {
		t.Fatalf("expected Return control to propagate, got %v", r.Control)
	}
	if i, _ := r.Value.AsInt(); i != 1 {
		t.Errorf("got %v, want 1 (second statement must not run)", r.Value)
	}
}

func TestArithmeticPromotion(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	expr := ast.BinaryOp{Op: "+", Left: ast.Literal{Value: value.Int(1)}, Right: ast.Literal{Value: value.Float(2.5)}}
	v, err := ev.EvalExpression(c, expr)
	if err != nil {
		t.Fatalf("EvalExpression: %v", err)
	}
	if f, ok := v.AsFloat(); !ok || f != 3.5 {
		t.Errorf("got %v, want Float(3.5)", v)
	}
}

func TestArithmeticIntegerStaysInteger(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	expr := ast.BinaryOp{Op: "*", Left: ast.Literal{Value: value.Int(3)}, Right: ast.Literal{Value: value.Int(4)}}
	v, err := ev.EvalExpression(c, expr)
	if err != nil {
		t.Fatalf("EvalExpression: %v", err)
	}
	if i, ok := v.AsInt(); !ok || i != 12 {
		t.Errorf("got %v, want Integer(12)", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	expr := ast.BinaryOp{Op: "/", Left: ast.Literal{Value: value.Int(1)}, Right: ast.Literal{Value: value.Int(0)}}
	_, err := ev.EvalExpression(c, expr)
	if _, ok := err.(DivisionByZero); !ok {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestEmitPublishesEvent(t *testing.T) {
	bus := eventbus.New(4)
	rx, _ := bus.Subscribe()
	defer rx.Close()

	ev := New(nil)
	c := newCtx(t, bus)
	stmt := ast.Emit{
		EventType: "Greeting",
		Args:      []ast.Arg{{Name: "message", Value: ast.Literal{Value: value.Str("hi")}}},
	}
	if _, err := ev.EvalStatement(c, stmt); err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}

	e, err := rx.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	msg, ok := e.Param("message")
	if !ok {
		t.Fatal("missing message parameter")
	}
	if s, _ := msg.AsString(); s != "hi" {
		t.Errorf("got %v, want hi", msg)
	}
}

func TestRequestHappyPath(t *testing.T) {
	bus := eventbus.New(8)
	rx, _ := bus.Subscribe()
	defer rx.Close()
	rm := requestmanager.New(bus, time.Second)

	go func() {
		e, err := rx.Recv()
		if err != nil {
			return
		}
		rm.HandleEvent(eventbus.NewResponseSuccess(e, eventbus.String("pong")))
	}()

	ev := New(rm)
	c := newCtx(t, bus)
	stmt := ast.Request{
		Agent:       ast.Literal{Value: value.Str("Pinger")},
		RequestType: "Ping",
	}
	r, err := ev.EvalStatement(c, stmt)
	if err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	if s, _ := r.Value.AsString(); s != "pong" {
		t.Errorf("got %v, want pong", r.Value)
	}
}

func TestAwaitBlockForksConcurrently(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	c.SetVariable("x", value.Int(1))

	stmt := ast.Await{
		Kind: ast.AwaitBlock,
		Block: []ast.Stmt{
			ast.ExprStmt{Expr: ast.Literal{Value: value.Int(10)}},
			ast.ExprStmt{Expr: ast.Literal{Value: value.Int(20)}},
		},
	}
	r, err := ev.EvalStatement(c, stmt)
	if err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	vs, ok := r.Value.AsTuple()
	if !ok || len(vs) != 2 {
		t.Fatalf("expected a 2-tuple, got %v", r.Value)
	}
}

func TestAwaitSingleUsesCurrentContext(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	stmt := ast.Await{
		Kind:   ast.AwaitSingle,
		Single: ast.Assignment{Target: ast.Variable{Name: "y"}, Value: ast.Literal{Value: value.Int(7)}},
	}
	if _, err := ev.EvalStatement(c, stmt); err != nil {
		t.Fatalf("EvalStatement: %v", err)
	}
	got, err := c.GetVariable("y")
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if i, _ := got.AsInt(); i != 7 {
		t.Errorf("Await(Single) did not run in the current context")
	}
}

func TestEqualityRequiresMatchingTypes(t *testing.T) {
	ev := New(nil)
	c := newCtx(t, nil)
	expr := ast.BinaryOp{Op: "==", Left: ast.Literal{Value: value.Int(1)}, Right: ast.Literal{Value: value.Str("1")}}
	v, err := ev.EvalExpression(c, expr)
	if err != nil {
		t.Fatalf("EvalExpression: %v", err)
	}
	if b, _ := v.AsBool(); b {
		t.Errorf("expected mismatched-type equality to be false")
	}
}
