// Package value defines the evaluator's dynamically typed Value (C5):
// the runtime value every ExecutionContext variable/state slot and
// every expression evaluation produces. It is a strict superset of
// eventbus.Value (adds Unit, Tuple, Error, Ok/Err, Delay) and is kept
// as a separate sum type per spec.md §9 — the two are never unified via
// generics, only bridged by explicit coercion at the evaluator/bus
// boundary (see internal/eval's event-construction helpers).
package value

import (
	"fmt"
	"time"
)

// Kind discriminates a Value's variant.
type Kind int

const (
	KindNull Kind = iota
	KindUnit
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindList
	KindTuple
	KindMap
	KindDuration
	KindError
	KindOk
	KindErr
	KindDelay
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindUnit:
		return "Unit"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBoolean:
		return "Boolean"
	case KindList:
		return "List"
	case KindTuple:
		return "Tuple"
	case KindMap:
		return "Map"
	case KindDuration:
		return "Duration"
	case KindError:
		return "Error"
	case KindOk:
		return "Ok"
	case KindErr:
		return "Err"
	case KindDelay:
		return "Delay"
	default:
		return "Unknown"
	}
}

// Value is the evaluator's dynamically typed runtime value.
type Value struct {
	kind Kind

	i int64
	f float64
	s string
	b bool
	d time.Duration
	l []Value
	m map[string]Value
	// inner holds the wrapped value for Ok/Err/Error.
	inner *Value
}

func Null() Value               { return Value{kind: KindNull} }
func Unit() Value               { return Value{kind: KindUnit} }
func Int(i int64) Value         { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Str(s string) Value        { return Value{kind: KindString, s: s} }
func Bool(b bool) Value         { return Value{kind: KindBoolean, b: b} }
func Dur(d time.Duration) Value { return Value{kind: KindDuration, d: d} }
func List(vs []Value) Value     { return Value{kind: KindList, l: vs} }
func Tuple(vs []Value) Value    { return Value{kind: KindTuple, l: vs} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}
func Error(msg string) Value { return Value{kind: KindError, s: msg} }
func Ok(v Value) Value       { return Value{kind: KindOk, inner: &v} }
func Err(v Value) Value      { return Value{kind: KindErr, inner: &v} }
func Delay(d time.Duration) Value { return Value{kind: KindDelay, d: d} }

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool)              { return v.i, v.kind == KindInteger }
func (v Value) AsFloat() (float64, bool)           { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)           { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool)               { return v.b, v.kind == KindBoolean }
func (v Value) AsDuration() (time.Duration, bool)  { return v.d, v.kind == KindDuration }
func (v Value) AsList() ([]Value, bool)            { return v.l, v.kind == KindList }
func (v Value) AsTuple() ([]Value, bool)           { return v.l, v.kind == KindTuple }
func (v Value) AsMap() (map[string]Value, bool)    { return v.m, v.kind == KindMap }
func (v Value) AsErrorMessage() (string, bool)     { return v.s, v.kind == KindError }

// Unwrap returns the wrapped value for Ok/Err, or false otherwise.
func (v Value) Unwrap() (Value, bool) {
	if (v.kind == KindOk || v.kind == KindErr) && v.inner != nil {
		return *v.inner, true
	}
	return Value{}, false
}

func (v Value) IsOk() bool  { return v.kind == KindOk }
func (v Value) IsErr() bool { return v.kind == KindErr }

// Truthy reports v's boolean value; non-Boolean values are never truthy.
func (v Value) Truthy() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// String renders a human-readable representation, used for string
// coercion (e.g. Think/Request results) and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnit:
		return "()"
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindDuration:
		return v.d.String()
	case KindList, KindTuple:
		return fmt.Sprintf("%v", v.l)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	case KindError:
		return "Error(" + v.s + ")"
	case KindOk:
		return "Ok(" + v.inner.String() + ")"
	case KindErr:
		return "Err(" + v.inner.String() + ")"
	case KindDelay:
		return "Delay(" + v.d.String() + ")"
	default:
		return "<unknown>"
	}
}

// Equal reports deep equality; equality comparisons require matching
// types (spec.md §4.5).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindUnit:
		return true
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString, KindError:
		return v.s == o.s
	case KindBoolean:
		return v.b == o.b
	case KindDuration, KindDelay:
		return v.d == o.d
	case KindList, KindTuple:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, mv := range v.m {
			ov, ok := o.m[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	case KindOk, KindErr:
		if v.inner == nil || o.inner == nil {
			return v.inner == o.inner
		}
		return v.inner.Equal(*o.inner)
	default:
		return false
	}
}
