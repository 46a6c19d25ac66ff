// Package eval implements the expression/statement evaluator (C5): it
// walks the DSL AST against an execctx.Context, driving variable and
// state access, event emission, correlated requests, and concurrent
// await. Grounded on the teacher's internal/agent iteration loop (tool
// dispatch, fork-and-join around concurrent work) generalized from a
// single fixed loop into a recursive AST walk.
package eval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/execctx"
	"github.com/kairei-run/kairei/internal/requestmanager"
	"github.com/kairei-run/kairei/internal/value"
)

// ControlKind distinguishes plain values from propagating control flow.
type ControlKind int

const (
	CtrlNone ControlKind = iota
	CtrlBreak
	CtrlContinue
	CtrlReturn
)

// StatementResult is either a plain Value or a Control signal that must
// propagate unchanged through enclosing blocks until consumed (spec.md
// §4.5).
type StatementResult struct {
	Value   value.Value
	Control ControlKind
}

func valueResult(v value.Value) StatementResult { return StatementResult{Value: v} }

func (r StatementResult) IsControl() bool { return r.Control != CtrlNone }

// InvalidOperation is returned for malformed AST shapes the parser
// should never produce (e.g. an assignment target that is neither a
// Variable nor a StateAccess).
type InvalidOperation struct{ Message string }

func (e InvalidOperation) Error() string { return "invalid operation: " + e.Message }

// TypeError is returned when an expression's runtime type doesn't
// satisfy an operation's requirement (e.g. an If condition that isn't
// Boolean).
type TypeError struct{ Expected, Actual string }

func (e TypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Actual)
}

// DivisionByZero is returned by / and % when the right operand is zero.
type DivisionByZero struct{}

func (DivisionByZero) Error() string { return "division by zero" }

// UnknownFunction is returned for calls to functions the evaluator has
// no binding for (a stand-in for user-defined/native functions, wired
// via Evaluator.Functions).
type UnknownFunction struct{ Name string }

func (e UnknownFunction) Error() string { return "unknown function: " + e.Name }

// Function is a native function callable from DSL FunctionCall
// expressions.
type Function func(ctx *execctx.Context, args map[string]value.Value) (value.Value, error)

// ThinkFn invokes an LLM provider for a Think expression, returning
// Ok(string) or Err(error) per spec.md §4.6's Think typing rule.
type ThinkFn func(ctx *execctx.Context, prompt string, options map[string]value.Value) (value.Value, error)

// Evaluator walks AST nodes against an execctx.Context.
type Evaluator struct {
	Requests  *requestmanager.Manager
	Functions map[string]Function
	Think     ThinkFn
}

// New creates an Evaluator driving Emit/Request through requests.
func New(requests *requestmanager.Manager) *Evaluator {
	return &Evaluator{Requests: requests, Functions: map[string]Function{}}
}

// EvalStatement evaluates a single statement, returning a plain Value
// result or a propagating Control signal.
func (ev *Evaluator) EvalStatement(c *execctx.Context, stmt ast.Stmt) (StatementResult, error) {
	switch s := stmt.(type) {
	case ast.Assignment:
		return ev.evalAssignment(c, s)
	case ast.If:
		return ev.evalIf(c, s)
	case ast.Block:
		return ev.evalBlock(c, s.Stmts)
	case ast.ExprStmt:
		v, err := ev.EvalExpression(c, s.Expr)
		if err != nil {
			return StatementResult{}, err
		}
		return valueResult(v), nil
	case ast.Emit:
		return ev.evalEmit(c, s)
	case ast.Request:
		return ev.evalRequest(c, s)
	case ast.Await:
		return ev.evalAwait(c, s)
	case ast.Return:
		v, err := ev.evalOptional(c, s.Value)
		if err != nil {
			return StatementResult{}, err
		}
		return StatementResult{Value: v, Control: CtrlReturn}, nil
	case ast.Break:
		v, err := ev.evalOptional(c, s.Value)
		if err != nil {
			return StatementResult{}, err
		}
		return StatementResult{Value: v, Control: CtrlBreak}, nil
	case ast.Continue:
		return StatementResult{Control: CtrlContinue}, nil
	default:
		return StatementResult{}, InvalidOperation{Message: fmt.Sprintf("unknown statement %T", stmt)}
	}
}

func (ev *Evaluator) evalOptional(c *execctx.Context, e ast.Expr) (value.Value, error) {
	if e == nil {
		return value.Unit(), nil
	}
	return ev.EvalExpression(c, e)
}

func (ev *Evaluator) evalAssignment(c *execctx.Context, s ast.Assignment) (StatementResult, error) {
	v, err := ev.EvalExpression(c, s.Value)
	if err != nil {
		return StatementResult{}, err
	}
	switch target := s.Target.(type) {
	case ast.Variable:
		if err := c.SetVariable(target.Name, v); err != nil {
			return StatementResult{}, err
		}
	case ast.StateAccess:
		if err := ev.setStateAccess(c, target.Path, v); err != nil {
			return StatementResult{}, err
		}
	default:
		return StatementResult{}, InvalidOperation{Message: "assignment target must be a variable or state access"}
	}
	return valueResult(v), nil
}

func (ev *Evaluator) evalIf(c *execctx.Context, s ast.If) (StatementResult, error) {
	cond, err := ev.EvalExpression(c, s.Cond)
	if err != nil {
		return StatementResult{}, err
	}
	b, ok := cond.AsBool()
	if !ok {
		return StatementResult{}, TypeError{Expected: "Boolean", Actual: cond.Kind().String()}
	}
	branch := s.Else
	if b {
		branch = s.Then
	}
	return ev.evalBlock(c, branch)
}

func (ev *Evaluator) evalBlock(c *execctx.Context, stmts []ast.Stmt) (StatementResult, error) {
	c.PushScope()
	defer c.PopScope()

	last := valueResult(value.Unit())
	for _, stmt := range stmts {
		r, err := ev.EvalStatement(c, stmt)
		if err != nil {
			return StatementResult{}, err
		}
		if r.IsControl() {
			return r, nil
		}
		last = r
	}
	return last, nil
}

func (ev *Evaluator) evalArgs(c *execctx.Context, args []ast.Arg) (map[string]eventbus.Value, error) {
	out := make(map[string]eventbus.Value, len(args))
	for i, a := range args {
		v, err := ev.EvalExpression(c, a.Value)
		if err != nil {
			return nil, err
		}
		key := a.Name
		if key == "" {
			key = fmt.Sprintf("%d", i+1)
		}
		out[key] = ToEventValue(v)
	}
	return out, nil
}

func (ev *Evaluator) evalEmit(c *execctx.Context, s ast.Emit) (StatementResult, error) {
	params, err := ev.evalArgs(c, s.Args)
	if err != nil {
		return StatementResult{}, err
	}
	if s.Target != nil {
		tv, err := ev.EvalExpression(c, s.Target)
		if err != nil {
			return StatementResult{}, err
		}
		to, _ := tv.AsString()
		params["to"] = eventbus.String(to)
	}
	event := eventbus.NewEvent(eventbus.CustomType(s.EventType), params)
	if bus := c.Bus(); bus != nil {
		if err := bus.Publish(event); err != nil {
			return StatementResult{}, err
		}
	}
	return valueResult(value.Unit()), nil
}

func (ev *Evaluator) evalRequest(c *execctx.Context, s ast.Request) (StatementResult, error) {
	agentV, err := ev.EvalExpression(c, s.Agent)
	if err != nil {
		return StatementResult{}, err
	}
	agent, _ := agentV.AsString()

	extra, err := ev.evalArgs(c, s.Args)
	if err != nil {
		return StatementResult{}, err
	}
	for _, opt := range s.Options {
		v, err := ev.EvalExpression(c, opt.Value)
		if err != nil {
			return StatementResult{}, err
		}
		extra[opt.Name] = ToEventValue(v)
	}

	requestID := uuid.NewString()
	req := eventbus.NewRequest(s.RequestType, c.AgentInfo().Name, agent, requestID, extra)

	if ev.Requests == nil {
		return StatementResult{}, InvalidOperation{Message: "no request manager configured"}
	}
	resp, err := ev.Requests.Request(context.Background(), req)
	if err != nil {
		return StatementResult{}, err
	}
	if resp.Type.Category == eventbus.CategoryResponseFailure {
		errMsg, _ := resp.ParamString("error")
		return StatementResult{}, InvalidOperation{Message: errMsg}
	}
	respVal, ok := resp.Param("response")
	if !ok {
		return StatementResult{}, InvalidOperation{Message: "response not found"}
	}
	return valueResult(FromEventValue(respVal)), nil
}

func (ev *Evaluator) evalAwait(c *execctx.Context, s ast.Await) (StatementResult, error) {
	if s.Kind == ast.AwaitSingle {
		return ev.EvalStatement(c, s.Single)
	}

	n := len(s.Block)
	results := make([]StatementResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i, stmt := range s.Block {
		forked := c.Fork(nil)
		go func(i int, stmt ast.Stmt) {
			defer wg.Done()
			r, err := ev.EvalStatement(forked, stmt)
			results[i] = r
			errs[i] = err
		}(i, stmt)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return StatementResult{}, err
		}
		if results[i].IsControl() {
			return results[i], nil
		}
	}

	values := make([]value.Value, n)
	for i, r := range results {
		values[i] = r.Value
	}
	return valueResult(value.Tuple(values)), nil
}

// EvalExpression evaluates a single expression to a Value.
func (ev *Evaluator) EvalExpression(c *execctx.Context, expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case ast.Literal:
		return e.Value, nil
	case ast.Variable:
		return c.GetVariable(e.Name)
	case ast.StateAccess:
		return ev.getStateAccess(c, e.Path)
	case ast.BinaryOp:
		return ev.evalBinaryOp(c, e)
	case ast.UnaryOp:
		return ev.evalUnaryOp(c, e)
	case ast.ListExpr:
		vs, err := ev.evalExprList(c, e.Elems)
		if err != nil {
			return value.Value{}, err
		}
		return value.List(vs), nil
	case ast.TupleExpr:
		vs, err := ev.evalExprList(c, e.Elems)
		if err != nil {
			return value.Value{}, err
		}
		return value.Tuple(vs), nil
	case ast.MapExpr:
		m := make(map[string]value.Value, len(e.Entries))
		for _, entry := range e.Entries {
			v, err := ev.EvalExpression(c, entry.Value)
			if err != nil {
				return value.Value{}, err
			}
			m[entry.Key] = v
		}
		return value.Map(m), nil
	case ast.OkExpr:
		v, err := ev.EvalExpression(c, e.Inner)
		if err != nil {
			return value.Value{}, err
		}
		return value.Ok(v), nil
	case ast.ErrExpr:
		v, err := ev.EvalExpression(c, e.Inner)
		if err != nil {
			return value.Value{}, err
		}
		return value.Err(v), nil
	case ast.Think:
		return ev.evalThink(c, e)
	case ast.FunctionCall:
		return ev.evalFunctionCall(c, e)
	default:
		return value.Value{}, InvalidOperation{Message: fmt.Sprintf("unknown expression %T", expr)}
	}
}

func (ev *Evaluator) evalExprList(c *execctx.Context, exprs []ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(exprs))
	for i, e := range exprs {
		v, err := ev.EvalExpression(c, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ev *Evaluator) evalThink(c *execctx.Context, e ast.Think) (value.Value, error) {
	if ev.Think == nil {
		return value.Err(value.Error("no think provider configured")), nil
	}
	promptV, err := ev.EvalExpression(c, e.Prompt)
	if err != nil {
		return value.Value{}, err
	}
	prompt, _ := promptV.AsString()
	opts := map[string]value.Value{}
	for _, o := range e.Options {
		v, err := ev.EvalExpression(c, o.Value)
		if err != nil {
			return value.Value{}, err
		}
		opts[o.Name] = v
	}
	return ev.Think(c, prompt, opts)
}

func (ev *Evaluator) evalFunctionCall(c *execctx.Context, e ast.FunctionCall) (value.Value, error) {
	fn, ok := ev.Functions[e.Name]
	if !ok {
		return value.Value{}, UnknownFunction{Name: e.Name}
	}
	args := make(map[string]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := ev.EvalExpression(c, a.Value)
		if err != nil {
			return value.Value{}, err
		}
		key := a.Name
		if key == "" {
			key = fmt.Sprintf("%d", i+1)
		}
		args[key] = v
	}
	return fn(c, args)
}

// getStateAccess resolves a dotted path, trying the joined name as a
// single state key first (supporting pre-flattened state), then
// walking the path segment by segment through nested maps (spec.md §9).
func (ev *Evaluator) getStateAccess(c *execctx.Context, path []string) (value.Value, error) {
	if len(path) == 0 {
		return value.Value{}, InvalidOperation{Message: "empty state access path"}
	}
	dotted := strings.Join(path, ".")
	if v, err := c.GetState(dotted); err == nil {
		return v, nil
	}
	if len(path) == 1 {
		return c.GetState(path[0])
	}
	cur, err := c.GetState(path[0])
	if err != nil {
		return value.Value{}, err
	}
	for _, seg := range path[1:] {
		m, ok := cur.AsMap()
		if !ok {
			return value.Value{}, execctx.VariableNotFound{Name: dotted}
		}
		v, ok := m[seg]
		if !ok {
			return value.Value{}, execctx.VariableNotFound{Name: dotted}
		}
		cur = v
	}
	return cur, nil
}

// setStateAccess writes to the joined dotted key, which is the
// canonical flattened state representation (spec.md §9).
func (ev *Evaluator) setStateAccess(c *execctx.Context, path []string, v value.Value) error {
	if len(path) == 0 {
		return InvalidOperation{Message: "empty state access path"}
	}
	return c.SetState(strings.Join(path, "."), v)
}
