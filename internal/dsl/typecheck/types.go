// Package typecheck implements the DSL type checker (C6): it visits
// the AST with a TypeContext and validates variable/function scope,
// call arity and argument types, If conditions, and handler return
// types, per spec.md §4.6. Grounded on original_source/kairei-core/src/
// type_checker/visitor/function.rs's FunctionTypeChecker trait
// (signature resolution → parameter extraction → argument checking)
// and the type_checker module's TypeInfo variant set.
package typecheck

import "fmt"

// Kind discriminates a TypeInfo variant.
type Kind int

const (
	KindSimple Kind = iota
	KindArray
	KindMap
	KindCustom
	KindResult
	KindOption
)

// FieldInfo describes one field of a Custom type.
type FieldInfo struct {
	Type    *TypeInfo
	Default bool // whether a default value is provided; the value itself is carried at the AST level
}

// TypeInfo is the type checker's type representation (spec.md §4.6).
type TypeInfo struct {
	Kind Kind

	Name string // KindSimple, KindCustom

	Elem *TypeInfo // KindArray

	Key, Value *TypeInfo // KindMap

	Fields map[string]FieldInfo // KindCustom

	Ok, Err *TypeInfo // KindResult

	Inner *TypeInfo // KindOption
}

func Simple(name string) TypeInfo { return TypeInfo{Kind: KindSimple, Name: name} }
func Array(elem TypeInfo) TypeInfo { return TypeInfo{Kind: KindArray, Elem: &elem} }
func MapOf(k, v TypeInfo) TypeInfo { return TypeInfo{Kind: KindMap, Key: &k, Value: &v} }
func Custom(name string, fields map[string]FieldInfo) TypeInfo {
	return TypeInfo{Kind: KindCustom, Name: name, Fields: fields}
}
func Result(ok, err TypeInfo) TypeInfo { return TypeInfo{Kind: KindResult, Ok: &ok, Err: &err} }
func Option(inner TypeInfo) TypeInfo   { return TypeInfo{Kind: KindOption, Inner: &inner} }

// Well-known built-in types referenced throughout the rules below.
var (
	Any     = Simple("Any")
	ErrType = Simple("Error")
	Boolean = Simple("Boolean")
	String  = Simple("String")
	Int     = Simple("Int")
	Float   = Simple("Float")
	Unit    = Simple("Unit")
)

// String renders a TypeInfo for diagnostics.
func (t TypeInfo) String() string {
	switch t.Kind {
	case KindSimple:
		return t.Name
	case KindArray:
		return "Array<" + t.Elem.String() + ">"
	case KindMap:
		return "Map<" + t.Key.String() + ", " + t.Value.String() + ">"
	case KindCustom:
		return t.Name
	case KindResult:
		return fmt.Sprintf("Result<%s, %s>", t.Ok.String(), t.Err.String())
	case KindOption:
		return "Option<" + t.Inner.String() + ">"
	default:
		return "<unknown type>"
	}
}

// Equal reports structural equality between two TypeInfo values. Any
// is not a universal match here; the Result{ok} relaxation in
// function-call checking is applied by the caller, not baked into
// Equal, so Equal always means "exactly the same type."
func (t TypeInfo) Equal(o TypeInfo) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindSimple, KindCustom:
		return t.Name == o.Name
	case KindArray:
		return t.Elem.Equal(*o.Elem)
	case KindMap:
		return t.Key.Equal(*o.Key) && t.Value.Equal(*o.Value)
	case KindResult:
		return t.Ok.Equal(*o.Ok) && t.Err.Equal(*o.Err)
	case KindOption:
		return t.Inner.Equal(*o.Inner)
	default:
		return false
	}
}

// okType returns the type to compare against an expected (non-Result)
// parameter type: if t is itself a Result, its Ok payload type (the
// relaxation spec.md §4.6 requires for function-call argument
// checking); otherwise t unchanged.
func okType(t TypeInfo) TypeInfo {
	if t.Kind == KindResult {
		return *t.Ok
	}
	return t
}
