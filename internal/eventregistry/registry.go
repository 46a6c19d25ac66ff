// Package eventregistry implements the Event Registry (C2): a
// thread-safe catalog from event type to its parameter schema, used to
// validate event parameters before publication.
package eventregistry

import (
	"fmt"
	"sync"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// ParameterType enumerates the accepted parameter type tags (spec.md §3).
type ParameterType struct {
	Kind ParameterKind
	// Elem is the element type for List.
	Elem *ParameterType
	// Key/Value are the types for Map.
	Key   *ParameterType
	Value *ParameterType
	// Name carries the type name for Custom.
	Name string
}

type ParameterKind int

const (
	ParamString ParameterKind = iota
	ParamInt
	ParamFloat
	ParamBoolean
	ParamDuration
	ParamDateTime
	ParamJSON
	ParamList
	ParamMap
	ParamCustom
)

func (k ParameterKind) String() string {
	switch k {
	case ParamString:
		return "String"
	case ParamInt:
		return "Int"
	case ParamFloat:
		return "Float"
	case ParamBoolean:
		return "Boolean"
	case ParamDuration:
		return "Duration"
	case ParamDateTime:
		return "DateTime"
	case ParamJSON:
		return "Json"
	case ParamList:
		return "List"
	case ParamMap:
		return "Map"
	case ParamCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Equal reports whether two parameter types denote the same schema
// type, recursively for List/Map/Custom.
func (t ParameterType) Equal(o ParameterType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case ParamList:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case ParamMap:
		if (t.Key == nil) != (o.Key == nil) || (t.Value == nil) != (o.Value == nil) {
			return false
		}
		if t.Key != nil && !t.Key.Equal(*o.Key) {
			return false
		}
		if t.Value != nil && !t.Value.Equal(*o.Value) {
			return false
		}
		return true
	case ParamCustom:
		return t.Name == o.Name
	default:
		return true
	}
}

// EventInfo is the registered schema for an event type: its name plus
// an ordered list of named, typed parameters.
type EventInfo struct {
	EventType  eventbus.EventType
	Parameters []ParamSpec
}

// ParamSpec names one parameter in an EventInfo's schema.
type ParamSpec struct {
	Name string
	Type ParameterType
}

func key(t eventbus.EventType) string {
	return fmt.Sprintf("%d:%s", t.Category, t.Name)
}

// Error kinds for the Event Registry (part of the EventError taxonomy,
// spec.md §7).
type AlreadyRegisteredError struct{ Name string }

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("event type %q already registered", e.Name)
}

type BuiltInAlreadyRegisteredError struct{ Name string }

func (e BuiltInAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("built-in event type %q already registered", e.Name)
}

type NotFoundError struct{ Name string }

func (e NotFoundError) Error() string { return fmt.Sprintf("event type %q not found", e.Name) }

type ParametersLengthNotMatchedError struct{ Expected, Got int }

func (e ParametersLengthNotMatchedError) Error() string {
	return fmt.Sprintf("expected %d parameters, got %d", e.Expected, e.Got)
}

type TypeMismatchError struct {
	Name             string
	Expected, Got ParameterType
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got %s", e.Name, e.Expected.Kind, e.Got.Kind)
}

// Registry is the thread-safe event schema catalog (C2).
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]EventInfo
	builtIns map[string]struct{}
}

// New creates a Registry with the built-in event types pre-registered
// (at minimum Tick{delta_time: Float}, per spec.md §4.2).
func New() *Registry {
	r := &Registry{
		schemas:  make(map[string]EventInfo),
		builtIns: make(map[string]struct{}),
	}
	r.mustRegisterBuiltIn(EventInfo{
		EventType:  eventbus.SystemType(eventbus.TypeTick),
		Parameters: []ParamSpec{{Name: "delta_time", Type: ParameterType{Kind: ParamFloat}}},
	})
	r.mustRegisterBuiltIn(EventInfo{
		EventType: eventbus.SystemType(eventbus.TypeMetricsSummary),
	})
	for _, name := range []string{
		eventbus.TypeAgentAdded, eventbus.TypeAgentRemoved,
		eventbus.TypeAgentStarted, eventbus.TypeAgentStopped,
		eventbus.TypeProviderRegistered, eventbus.TypeProviderPrimarySet,
		eventbus.TypeProviderShutdown,
		eventbus.TypeSystemCreated, eventbus.TypeSystemNativeFeaturesRegistered,
		eventbus.TypeSystemProvidersRegistered, eventbus.TypeSystemWorldRegistered,
		eventbus.TypeSystemBuiltinAgentsRegistered, eventbus.TypeSystemUserAgentsRegistered,
		eventbus.TypeSystemStarting, eventbus.TypeSystemStarted,
		eventbus.TypeSystemStopping, eventbus.TypeSystemStopped,
	} {
		r.mustRegisterBuiltIn(EventInfo{EventType: eventbus.LifecycleType(name)})
	}
	return r
}

func (r *Registry) mustRegisterBuiltIn(info EventInfo) {
	r.schemas[key(info.EventType)] = info
	r.builtIns[key(info.EventType)] = struct{}{}
}

// RegisterEvent registers a new event schema. Custom event types may be
// registered at most once per name (AlreadyRegisteredError on repeat);
// built-in event types are registered exactly once, by New, and any
// further attempt to register one fails with
// BuiltInAlreadyRegisteredError.
func (r *Registry) RegisterEvent(info EventInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(info.EventType)
	if _, isBuiltIn := r.builtIns[k]; isBuiltIn {
		return BuiltInAlreadyRegisteredError{Name: info.EventType.Name}
	}
	if _, exists := r.schemas[k]; exists {
		return AlreadyRegisteredError{Name: info.EventType.Name}
	}
	r.schemas[k] = info
	return nil
}

// ValidateParameters checks that params conforms to the registered
// schema for eventType: same arity, and for each entry name matches and
// type equals (spec.md §4.2, testable property 10).
func (r *Registry) ValidateParameters(eventType eventbus.EventType, params []ParamSpec) error {
	r.mu.RLock()
	info, ok := r.schemas[key(eventType)]
	r.mu.RUnlock()
	if !ok {
		return NotFoundError{Name: eventType.Name}
	}

	if len(params) != len(info.Parameters) {
		return ParametersLengthNotMatchedError{Expected: len(info.Parameters), Got: len(params)}
	}

	expectedByName := make(map[string]ParameterType, len(info.Parameters))
	for _, p := range info.Parameters {
		expectedByName[p.Name] = p.Type
	}

	for _, p := range params {
		expected, ok := expectedByName[p.Name]
		if !ok {
			return NotFoundError{Name: p.Name}
		}
		if !expected.Equal(p.Type) {
			return TypeMismatchError{Name: p.Name, Expected: expected, Got: p.Type}
		}
	}
	return nil
}

// Lookup returns the registered schema for eventType, if any.
func (r *Registry) Lookup(eventType eventbus.EventType) (EventInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.schemas[key(eventType)]
	return info, ok
}
