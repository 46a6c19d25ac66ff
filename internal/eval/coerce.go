package eval

import (
	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/value"
)

// ToEventValue coerces an evaluator Value onto the bus's narrower
// Value type. Unit/Tuple/Error/Ok/Err/Delay have no bus representation
// and are coerced to their closest bus-level shape, never unified via
// generics with value.Value itself (spec.md §9).
func ToEventValue(v value.Value) eventbus.Value {
	switch v.Kind() {
	case value.KindNull, value.KindUnit:
		return eventbus.Null()
	case value.KindInteger:
		i, _ := v.AsInt()
		return eventbus.Int(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return eventbus.Float(f)
	case value.KindString:
		s, _ := v.AsString()
		return eventbus.String(s)
	case value.KindBoolean:
		b, _ := v.AsBool()
		return eventbus.Bool(b)
	case value.KindDuration, value.KindDelay:
		d, _ := v.AsDuration()
		return eventbus.Dur(d)
	case value.KindList, value.KindTuple:
		l, _ := v.AsList()
		out := make([]eventbus.Value, len(l))
		for i, e := range l {
			out[i] = ToEventValue(e)
		}
		return eventbus.List(out...)
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]eventbus.Value, len(m))
		for k, e := range m {
			out[k] = ToEventValue(e)
		}
		return eventbus.Map(out)
	case value.KindError:
		msg, _ := v.AsErrorMessage()
		return eventbus.String(msg)
	case value.KindOk, value.KindErr:
		inner, ok := v.Unwrap()
		if !ok {
			return eventbus.Null()
		}
		return ToEventValue(inner)
	default:
		return eventbus.Null()
	}
}

// FromEventValue lifts a bus Value into the evaluator's richer Value
// type.
func FromEventValue(v eventbus.Value) value.Value {
	switch v.Kind() {
	case eventbus.KindNull:
		return value.Null()
	case eventbus.KindInteger:
		i, _ := v.AsInt()
		return value.Int(i)
	case eventbus.KindFloat:
		f, _ := v.AsFloat()
		return value.Float(f)
	case eventbus.KindString:
		s, _ := v.AsString()
		return value.Str(s)
	case eventbus.KindBoolean:
		b, _ := v.AsBool()
		return value.Bool(b)
	case eventbus.KindDuration:
		d, _ := v.AsDuration()
		return value.Dur(d)
	case eventbus.KindList:
		l, _ := v.AsList()
		out := make([]value.Value, len(l))
		for i, e := range l {
			out[i] = FromEventValue(e)
		}
		return value.List(out)
	case eventbus.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]value.Value, len(m))
		for k, e := range m {
			out[k] = FromEventValue(e)
		}
		return value.Map(out)
	default:
		return value.Null()
	}
}
