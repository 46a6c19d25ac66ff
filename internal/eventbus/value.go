// Package eventbus provides the in-process broadcast event bus (C1):
// typed events fanned out to N subscribers with lag detection. Delivery
// never blocks a publisher; a subscriber that falls behind observes a
// Lagged signal on its next Recv and continues from the current position.
package eventbus

import "time"

// Value is the wire-level value type carried in event parameters. It is
// a closed sum type distinct from the evaluator's richer Value (see
// internal/eval) — the two are joined only by an explicit coercion at
// the evaluator/bus boundary, never unified.
type Value struct {
	kind Kind

	i   int64
	f   float64
	s   string
	b   bool
	d   time.Duration
	l   []Value
	m   map[string]Value
}

// Kind discriminates the Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindList
	KindDuration
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
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
	case KindDuration:
		return "Duration"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

func Null() Value                   { return Value{kind: KindNull} }
func Int(i int64) Value             { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value         { return Value{kind: KindFloat, f: f} }
func String(s string) Value         { return Value{kind: KindString, s: s} }
func Bool(b bool) Value             { return Value{kind: KindBoolean, b: b} }
func Dur(d time.Duration) Value     { return Value{kind: KindDuration, d: d} }
func List(vs ...Value) Value        { return Value{kind: KindList, l: vs} }
func Map(m map[string]Value) Value  { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool)             { return v.i, v.kind == KindInteger }
func (v Value) AsFloat() (float64, bool)         { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)         { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool)             { return v.b, v.kind == KindBoolean }
func (v Value) AsDuration() (time.Duration, bool) { return v.d, v.kind == KindDuration }
func (v Value) AsList() ([]Value, bool)          { return v.l, v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool)  { return v.m, v.kind == KindMap }

// Equal reports whether two values have identical kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBoolean:
		return v.b == o.b
	case KindDuration:
		return v.d == o.d
	case KindList:
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
	default:
		return false
	}
}
