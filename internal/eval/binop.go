package eval

import (
	"github.com/kairei-run/kairei/internal/dsl/ast"
	"github.com/kairei-run/kairei/internal/execctx"
	"github.com/kairei-run/kairei/internal/value"
)

func (ev *Evaluator) evalUnaryOp(c *execctx.Context, e ast.UnaryOp) (value.Value, error) {
	v, err := ev.EvalExpression(c, e.Operand)
	if err != nil {
		return value.Value{}, err
	}
	switch e.Op {
	case "!":
		b, ok := v.AsBool()
		if !ok {
			return value.Value{}, TypeError{Expected: "Boolean", Actual: v.Kind().String()}
		}
		return value.Bool(!b), nil
	case "-":
		if i, ok := v.AsInt(); ok {
			return value.Int(-i), nil
		}
		if f, ok := v.AsFloat(); ok {
			return value.Float(-f), nil
		}
		return value.Value{}, TypeError{Expected: "Integer or Float", Actual: v.Kind().String()}
	default:
		return value.Value{}, InvalidOperation{Message: "unknown unary operator " + e.Op}
	}
}

func (ev *Evaluator) evalBinaryOp(c *execctx.Context, e ast.BinaryOp) (value.Value, error) {
	left, err := ev.EvalExpression(c, e.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.EvalExpression(c, e.Right)
	if err != nil {
		return value.Value{}, err
	}

	switch e.Op {
	case "&&", "||":
		lb, ok := left.AsBool()
		if !ok {
			return value.Value{}, TypeError{Expected: "Boolean", Actual: left.Kind().String()}
		}
		rb, ok := right.AsBool()
		if !ok {
			return value.Value{}, TypeError{Expected: "Boolean", Actual: right.Kind().String()}
		}
		if e.Op == "&&" {
			return value.Bool(lb && rb), nil
		}
		return value.Bool(lb || rb), nil

	case "==":
		return value.Bool(left.Equal(right)), nil
	case "!=":
		return value.Bool(!left.Equal(right)), nil

	case "+", "-", "*", "/", "%":
		return evalArith(e.Op, left, right)

	case "<", "<=", ">", ">=":
		return evalCompare(e.Op, left, right)

	default:
		return value.Value{}, InvalidOperation{Message: "unknown binary operator " + e.Op}
	}
}

// numeric extracts an operand as a float64 plus whether it was
// originally a Float (used for the Integer→Float promotion rule).
func numeric(v value.Value) (f float64, wasFloat bool, ok bool) {
	if fv, isFloat := v.AsFloat(); isFloat {
		return fv, true, true
	}
	if iv, isInt := v.AsInt(); isInt {
		return float64(iv), false, true
	}
	return 0, false, false
}

func evalArith(op string, left, right value.Value) (value.Value, error) {
	lf, lFloat, lok := numeric(left)
	rf, rFloat, rok := numeric(right)
	if !lok || !rok {
		return value.Value{}, TypeError{Expected: "numeric", Actual: left.Kind().String() + "/" + right.Kind().String()}
	}

	promote := lFloat || rFloat
	if op == "/" || op == "%" {
		if rf == 0 {
			return value.Value{}, DivisionByZero{}
		}
	}

	if !promote {
		li := int64(lf)
		ri := int64(rf)
		switch op {
		case "+":
			return value.Int(li + ri), nil
		case "-":
			return value.Int(li - ri), nil
		case "*":
			return value.Int(li * ri), nil
		case "/":
			return value.Int(li / ri), nil
		case "%":
			return value.Int(li % ri), nil
		}
	}

	switch op {
	case "+":
		return value.Float(lf + rf), nil
	case "-":
		return value.Float(lf - rf), nil
	case "*":
		return value.Float(lf * rf), nil
	case "/":
		return value.Float(lf / rf), nil
	case "%":
		return value.Float(float64(int64(lf) % int64(rf))), nil
	}
	return value.Value{}, InvalidOperation{Message: "unreachable arithmetic operator " + op}
}

func evalCompare(op string, left, right value.Value) (value.Value, error) {
	lf, _, lok := numeric(left)
	rf, _, rok := numeric(right)
	if !lok || !rok {
		return value.Value{}, TypeError{Expected: "numeric", Actual: left.Kind().String() + "/" + right.Kind().String()}
	}
	switch op {
	case "<":
		return value.Bool(lf < rf), nil
	case "<=":
		return value.Bool(lf <= rf), nil
	case ">":
		return value.Bool(lf > rf), nil
	case ">=":
		return value.Bool(lf >= rf), nil
	}
	return value.Value{}, InvalidOperation{Message: "unreachable comparison operator " + op}
}
