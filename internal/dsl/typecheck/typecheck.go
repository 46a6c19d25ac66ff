package typecheck

import (
	"fmt"

	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/value"
)

// Error types. Location metadata (line/column/byte-span) is deliberately
// not carried on these errors: the hand-rolled internal/dsl/ast node set
// only attaches token.Span to tokens produced by the tokenizer, not to
// AST nodes built from them, so there is no position to report once
// parsing has folded tokens into a tree. Recorded as a scoping decision
// in DESIGN.md rather than a TODO — adding span-carrying AST nodes is a
// node-set change, not a leftover task on this pass.

type UndefinedVariable struct{ Name string }

func (e UndefinedVariable) Error() string { return "undefined variable: " + e.Name }

type UndefinedFunction struct{ Name string }

func (e UndefinedFunction) Error() string { return "undefined function: " + e.Name }

type ArityMismatch struct {
	Function string
	Want     int
	Got      int
}

func (e ArityMismatch) Error() string {
	return fmt.Sprintf("function %s requires %d arguments, but %d was provided", e.Function, e.Want, e.Got)
}

type TypeMismatch struct {
	Context  string // e.g. "argument 1 of function foo", "assignment to number"
	Expected TypeInfo
	Found    TypeInfo
}

func (e TypeMismatch) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("type mismatch in %s: expected %s, found %s", e.Context, e.Expected, e.Found)
	}
	return fmt.Sprintf("type mismatch: expected %s, found %s", e.Expected, e.Found)
}

type ConditionNotBoolean struct{ Found TypeInfo }

func (e ConditionNotBoolean) Error() string {
	return fmt.Sprintf("if condition must be Boolean, found %s", e.Found)
}

type ReturnTypeMismatch struct {
	Handler  string
	Expected TypeInfo
	Found    TypeInfo
}

func (e ReturnTypeMismatch) Error() string {
	return fmt.Sprintf("handler %s returns %s, but declares return type %s", e.Handler, e.Found, e.Expected)
}

// Signature is a function's checked shape: ordered parameter types (by
// name, matching how Args are resolved — positional args are numbered
// "1".."N" by the evaluator, so a signature for a function called
// positionally should name its parameters "1", "2", ...) and its result
// type. Grounded on original_source/kairei-core/src/type_checker/
// visitor/function.rs's get_function_signature / extract_parameter_types.
type Signature struct {
	Params []Param
	Result TypeInfo
}

type Param struct {
	Name string
	Type TypeInfo
}

// TypeContext is the type checker's scope: variable types and function
// signatures visible at the current point, plus the declared return
// type of the handler currently being checked (used by Return checks).
type TypeContext struct {
	vars      map[string]TypeInfo
	functions map[string]Signature
	handler   string
	returns   *TypeInfo // nil outside a handler body
}

// NewTypeContext creates an empty root context.
func NewTypeContext() *TypeContext {
	return &TypeContext{vars: map[string]TypeInfo{}, functions: map[string]Signature{}}
}

// Child creates a nested scope that inherits vars/functions by copy (so
// additions in the child never leak back to the parent), used when
// entering a handler body or a nested block.
func (c *TypeContext) Child() *TypeContext {
	vars := make(map[string]TypeInfo, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	return &TypeContext{vars: vars, functions: c.functions, handler: c.handler, returns: c.returns}
}

// WithHandler returns a child context scoped to checking a handler body
// with the given declared return type.
func (c *TypeContext) WithHandler(name string, returns TypeInfo) *TypeContext {
	child := c.Child()
	child.handler = name
	child.returns = &returns
	return child
}

func (c *TypeContext) DeclareVar(name string, t TypeInfo) { c.vars[name] = t }

func (c *TypeContext) DeclareFunction(name string, sig Signature) { c.functions[name] = sig }

func (c *TypeContext) lookupVar(name string) (TypeInfo, bool) {
	t, ok := c.vars[name]
	return t, ok
}

func (c *TypeContext) lookupFunction(name string) (Signature, bool) {
	sig, ok := c.functions[name]
	return sig, ok
}

// thinkResultType is Think/Request's inferred type, Result<String, Error>
// (spec.md §4.6).
func thinkResultType() TypeInfo { return Result(String, ErrType) }

// CheckExpr infers e's type under ctx, returning every TypeMismatch-class
// error encountered reaching that inference (an error return always
// accompanies a best-effort type so callers that want to keep checking
// sibling expressions still have something to compare against).
func CheckExpr(ctx *TypeContext, e ast.Expr) (TypeInfo, error) {
	switch n := e.(type) {
	case ast.Literal:
		return literalType(n.Value), nil

	case ast.Variable:
		t, ok := ctx.lookupVar(n.Name)
		if !ok {
			return Any, UndefinedVariable{Name: n.Name}
		}
		return t, nil

	case ast.StateAccess:
		// State is untyped storage at the AST level (its schema lives in
		// the DSL's State block, not modeled by this pass), so a
		// StateAccess always type-checks as Any; callers assigning into
		// a declared state variable compare against that variable's
		// declared type via ctx.lookupVar on the flattened dotted name.
		if len(n.Path) > 0 {
			if t, ok := ctx.lookupVar(dotted(n.Path)); ok {
				return t, nil
			}
		}
		return Any, nil

	case ast.UnaryOp:
		operand, err := CheckExpr(ctx, n.Operand)
		if err != nil {
			return Any, err
		}
		switch n.Op {
		case "!":
			if !operand.Equal(Boolean) {
				return Any, TypeMismatch{Context: "operand of !", Expected: Boolean, Found: operand}
			}
			return Boolean, nil
		case "-":
			if !operand.Equal(Int) && !operand.Equal(Float) {
				return Any, TypeMismatch{Context: "operand of unary -", Expected: Int, Found: operand}
			}
			return operand, nil
		}
		return Any, nil

	case ast.BinaryOp:
		left, err := CheckExpr(ctx, n.Left)
		if err != nil {
			return Any, err
		}
		right, err := CheckExpr(ctx, n.Right)
		if err != nil {
			return Any, err
		}
		return checkBinaryOp(n.Op, left, right)

	case ast.ListExpr:
		if len(n.Elems) == 0 {
			return Array(Any), nil
		}
		elemType, err := CheckExpr(ctx, n.Elems[0])
		if err != nil {
			return Any, err
		}
		for _, el := range n.Elems[1:] {
			t, err := CheckExpr(ctx, el)
			if err != nil {
				return Any, err
			}
			if !t.Equal(elemType) {
				return Any, TypeMismatch{Context: "list element", Expected: elemType, Found: t}
			}
		}
		return Array(elemType), nil

	case ast.TupleExpr:
		// Tuples are heterogeneous; type-check each element for its own
		// sake but the tuple as a whole has no single checkable shape
		// beyond Any at this level.
		for _, el := range n.Elems {
			if _, err := CheckExpr(ctx, el); err != nil {
				return Any, err
			}
		}
		return Any, nil

	case ast.MapExpr:
		for _, entry := range n.Entries {
			if _, err := CheckExpr(ctx, entry.Value); err != nil {
				return Any, err
			}
		}
		return MapOf(String, Any), nil

	case ast.FunctionCall:
		return checkFunctionCall(ctx, n)

	case ast.OkExpr:
		inner, err := CheckExpr(ctx, n.Inner)
		if err != nil {
			return Any, err
		}
		return Result(inner, ErrType), nil

	case ast.ErrExpr:
		inner, err := CheckExpr(ctx, n.Inner)
		if err != nil {
			return Any, err
		}
		return Result(Any, inner), nil

	case ast.Think:
		if _, err := CheckExpr(ctx, n.Prompt); err != nil {
			return Any, err
		}
		return thinkResultType(), nil

	default:
		return Any, fmt.Errorf("typecheck: unhandled expression node %T", e)
	}
}

func dotted(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}

func literalType(v value.Value) TypeInfo {
	switch v.Kind() {
	case value.KindInteger:
		return Int
	case value.KindFloat:
		return Float
	case value.KindString:
		return String
	case value.KindBoolean:
		return Boolean
	case value.KindUnit:
		return Unit
	default:
		return Any
	}
}

func checkBinaryOp(op string, left, right TypeInfo) (TypeInfo, error) {
	switch op {
	case "&&", "||":
		if !left.Equal(Boolean) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Boolean, Found: left}
		}
		if !right.Equal(Boolean) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Boolean, Found: right}
		}
		return Boolean, nil
	case "==", "!=":
		if !left.Equal(right) {
			return Any, TypeMismatch{Context: "operands of " + op, Expected: left, Found: right}
		}
		return Boolean, nil
	case "<", "<=", ">", ">=":
		if !isNumeric(left) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Int, Found: left}
		}
		if !isNumeric(right) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Int, Found: right}
		}
		return Boolean, nil
	case "+", "-", "*", "/", "%":
		if !isNumeric(left) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Int, Found: left}
		}
		if !isNumeric(right) {
			return Any, TypeMismatch{Context: "operand of " + op, Expected: Int, Found: right}
		}
		if left.Equal(Float) || right.Equal(Float) {
			return Float, nil
		}
		return Int, nil
	default:
		return Any, fmt.Errorf("typecheck: unknown binary operator %q", op)
	}
}

func isNumeric(t TypeInfo) bool { return t.Equal(Int) || t.Equal(Float) }

// checkFunctionCall validates arity and argument types per spec.md
// §4.6, matching the documented error shapes in
// type_checker/visitor/function.rs's check_argument_types: arity must
// be exact, and each argument's inferred type must equal the declared
// parameter type — relaxed so a Result{ok} argument may satisfy a
// non-Result parameter if its ok-type matches.
func checkFunctionCall(ctx *TypeContext, call ast.FunctionCall) (TypeInfo, error) {
	sig, ok := ctx.lookupFunction(call.Name)
	if !ok {
		return Any, UndefinedFunction{Name: call.Name}
	}
	if len(call.Args) != len(sig.Params) {
		return Any, ArityMismatch{Function: call.Name, Want: len(sig.Params), Got: len(call.Args)}
	}
	for i, arg := range call.Args {
		argType, err := CheckExpr(ctx, arg.Value)
		if err != nil {
			return Any, err
		}
		want := sig.Params[i].Type
		got := argType
		if want.Kind != KindResult {
			got = okType(argType)
		}
		if !got.Equal(want) {
			return Any, TypeMismatch{
				Context:  fmt.Sprintf("argument %d of function %s", i+1, call.Name),
				Expected: want,
				Found:    argType,
			}
		}
	}
	return sig.Result, nil
}

// CheckStmt type-checks a single statement, returning the first error
// encountered.
func CheckStmt(ctx *TypeContext, s ast.Stmt) error {
	switch n := s.(type) {
	case ast.Assignment:
		valType, err := CheckExpr(ctx, n.Value)
		if err != nil {
			return err
		}
		switch target := n.Target.(type) {
		case ast.Variable:
			if declared, ok := ctx.lookupVar(target.Name); ok {
				if !valType.Equal(declared) {
					return TypeMismatch{Context: "assignment to " + target.Name, Expected: declared, Found: valType}
				}
			} else {
				ctx.DeclareVar(target.Name, valType)
			}
		case ast.StateAccess:
			name := dotted(target.Path)
			if declared, ok := ctx.lookupVar(name); ok {
				if !valType.Equal(declared) {
					return TypeMismatch{Context: "assignment to " + name, Expected: declared, Found: valType}
				}
			} else {
				ctx.DeclareVar(name, valType)
			}
		default:
			return fmt.Errorf("typecheck: invalid assignment target %T", n.Target)
		}
		return nil

	case ast.If:
		condType, err := CheckExpr(ctx, n.Cond)
		if err != nil {
			return err
		}
		if !condType.Equal(Boolean) {
			return ConditionNotBoolean{Found: condType}
		}
		thenCtx := ctx.Child()
		if err := CheckBlock(thenCtx, n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			elseCtx := ctx.Child()
			if err := CheckBlock(elseCtx, n.Else); err != nil {
				return err
			}
		}
		return nil

	case ast.Block:
		return CheckBlock(ctx.Child(), n.Stmts)

	case ast.ExprStmt:
		_, err := CheckExpr(ctx, n.Expr)
		return err

	case ast.Emit:
		for _, a := range n.Args {
			if _, err := CheckExpr(ctx, a.Value); err != nil {
				return err
			}
		}
		if n.Target != nil {
			if _, err := CheckExpr(ctx, n.Target); err != nil {
				return err
			}
		}
		return nil

	case ast.Request:
		if _, err := CheckExpr(ctx, n.Agent); err != nil {
			return err
		}
		for _, a := range n.Args {
			if _, err := CheckExpr(ctx, a.Value); err != nil {
				return err
			}
		}
		return nil

	case ast.Await:
		switch n.Kind {
		case ast.AwaitSingle:
			return CheckStmt(ctx, n.Single)
		case ast.AwaitBlock:
			for _, s := range n.Block {
				if err := CheckStmt(ctx.Child(), s); err != nil {
					return err
				}
			}
			return nil
		}
		return nil

	case ast.Return:
		var found TypeInfo = Unit
		if n.Value != nil {
			t, err := CheckExpr(ctx, n.Value)
			if err != nil {
				return err
			}
			found = t
		}
		if ctx.returns != nil {
			want := *ctx.returns
			got := found
			if want.Kind != KindResult {
				got = okType(found)
			}
			if !got.Equal(want) {
				return ReturnTypeMismatch{Handler: ctx.handler, Expected: want, Found: found}
			}
		}
		return nil

	case ast.Break:
		if n.Value != nil {
			_, err := CheckExpr(ctx, n.Value)
			return err
		}
		return nil

	case ast.Continue:
		return nil

	default:
		return fmt.Errorf("typecheck: unhandled statement node %T", s)
	}
}

// CheckBlock checks every statement in stmts in order under ctx,
// stopping at the first error.
func CheckBlock(ctx *TypeContext, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := CheckStmt(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// CheckHandler checks a handler body against its declared return type,
// with state/parameter variables pre-declared in ctx by the caller
// (the Agent Registry's handler-registration path, per spec.md §4.6).
func CheckHandler(ctx *TypeContext, name string, returns TypeInfo, body []ast.Stmt) error {
	return CheckBlock(ctx.WithHandler(name, returns), body)
}
