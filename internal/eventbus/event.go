package eventbus

import "time"

// EventType tags an Event's category. It carries the few variants that
// need an associated name/field (Message, Failure, Custom, StateUpdated,
// Request/Response) as plain fields alongside the tag rather than as a
// Go type switch over distinct structs, so Event stays a single flat
// type that is cheap to copy and to match against in the bus.
type EventType struct {
	Category Category
	// Name carries the variant-specific tag: content_type for Message,
	// error_type for Failure, the event name for Custom, the request
	// type for Request/Response.
	Name string
}

// Category enumerates the Event categories from spec.md §3.
type Category int

const (
	CategorySystem Category = iota
	CategoryLifecycle
	CategoryFeatureStatus
	CategoryProviderStatus
	CategoryMessage
	CategoryFailure
	CategoryRequest
	CategoryResponseSuccess
	CategoryResponseFailure
	CategoryCustom
	CategoryStateUpdated
)

// Built-in event type names used by lifecycle/system events.
const (
	TypeTick                       = "Tick"
	TypeMetricsSummary              = "MetricsSummary"
	TypeSystemCreated               = "SystemCreated"
	TypeSystemNativeFeaturesRegistered = "SystemNativeFeaturesRegistered"
	TypeSystemProvidersRegistered    = "SystemProvidersRegistered"
	TypeSystemWorldRegistered        = "SystemWorldRegistered"
	TypeSystemBuiltinAgentsRegistered = "SystemBuiltinAgentsRegistered"
	TypeSystemUserAgentsRegistered   = "SystemUserAgentsRegistered"
	TypeSystemStarting               = "SystemStarting"
	TypeSystemStarted                = "SystemStarted"
	TypeSystemStopping               = "SystemStopping"
	TypeSystemStopped                = "SystemStopped"
	TypeAgentAdded                   = "AgentAdded"
	TypeAgentRemoved                 = "AgentRemoved"
	TypeAgentStarted                 = "AgentStarted"
	TypeAgentStopped                 = "AgentStopped"
	TypeProviderRegistered           = "ProviderRegistered"
	TypeProviderPrimarySet           = "ProviderPrimarySet"
	TypeProviderShutdown             = "ProviderShutdown"
	TypeErrorEvent                   = "ErrorEvent"
)

func SystemType(name string) EventType   { return EventType{Category: CategorySystem, Name: name} }
func LifecycleType(name string) EventType { return EventType{Category: CategoryLifecycle, Name: name} }
func MessageType(contentType string) EventType {
	return EventType{Category: CategoryMessage, Name: contentType}
}
func FailureType(errorType string) EventType {
	return EventType{Category: CategoryFailure, Name: errorType}
}
func RequestType(requestType string) EventType {
	return EventType{Category: CategoryRequest, Name: requestType}
}
func ResponseSuccessType(requestType string) EventType {
	return EventType{Category: CategoryResponseSuccess, Name: requestType}
}
func ResponseFailureType(requestType string) EventType {
	return EventType{Category: CategoryResponseFailure, Name: requestType}
}
func CustomType(name string) EventType { return EventType{Category: CategoryCustom, Name: name} }
func StateUpdatedType() EventType      { return EventType{Category: CategoryStateUpdated} }

// Event is a typed event carrying a string-keyed parameter map, per
// spec.md §3.
type Event struct {
	Type       EventType
	Parameters map[string]Value
	Timestamp  time.Time
}

// NewEvent constructs an Event, defaulting Parameters to an empty map
// and Timestamp to now if unset.
func NewEvent(t EventType, params map[string]Value) Event {
	if params == nil {
		params = map[string]Value{}
	}
	return Event{Type: t, Parameters: params, Timestamp: time.Now()}
}

// Param fetches a parameter, returning the zero Value and false if absent.
func (e Event) Param(name string) (Value, bool) {
	v, ok := e.Parameters[name]
	return v, ok
}

// ParamString is a convenience accessor for a String parameter.
func (e Event) ParamString(name string) (string, bool) {
	v, ok := e.Param(name)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// IsRequest reports whether this event is a Request variant.
func (e Event) IsRequest() bool { return e.Type.Category == CategoryRequest }

// IsResponse reports whether this event is a ResponseSuccess or
// ResponseFailure variant.
func (e Event) IsResponse() bool {
	return e.Type.Category == CategoryResponseSuccess || e.Type.Category == CategoryResponseFailure
}

// RequestID returns the event's request_id parameter, if present. Every
// Request/Response event carries request_id, requester, responder, and
// request_type (the invariant from spec.md §3).
func (e Event) RequestID() (string, bool) {
	return e.ParamString("request_id")
}

// IsResponseTo reports whether this event is a Response correlated with
// the given request_id.
func (e Event) IsResponseTo(requestID string) bool {
	if !e.IsResponse() {
		return false
	}
	id, ok := e.RequestID()
	return ok && id == requestID
}

// RequestForMe reports whether this is a Request addressed to agent
// (via its responder field).
func (e Event) RequestForMe(agent string) bool {
	if !e.IsRequest() {
		return false
	}
	responder, ok := e.ParamString("responder")
	return ok && responder == agent
}

// ResponseForMe reports whether this is a Response addressed to agent
// (via its requester field).
func (e Event) ResponseForMe(agent string) bool {
	if !e.IsResponse() {
		return false
	}
	requester, ok := e.ParamString("requester")
	return ok && requester == agent
}

// NewRequest builds a Request event with the four correlation fields
// spec.md §3 requires (request_type, requester, responder, request_id).
func NewRequest(requestType, requester, responder, requestID string, extra map[string]Value) Event {
	params := map[string]Value{
		"request_type": String(requestType),
		"requester":    String(requester),
		"responder":    String(responder),
		"request_id":   String(requestID),
	}
	for k, v := range extra {
		params[k] = v
	}
	return NewEvent(RequestType(requestType), params)
}

// NewResponseSuccess builds a ResponseSuccess carrying the same four
// correlation fields as req plus parameters["response"].
func NewResponseSuccess(req Event, response Value) Event {
	params := correlationParams(req)
	params["response"] = response
	return NewEvent(ResponseSuccessType(requestTypeOf(req)), params)
}

// NewResponseFailure builds a ResponseFailure carrying the same four
// correlation fields as req plus parameters["error"].
func NewResponseFailure(req Event, errMsg string) Event {
	params := correlationParams(req)
	params["error"] = String(errMsg)
	return NewEvent(ResponseFailureType(requestTypeOf(req)), params)
}

func requestTypeOf(req Event) string {
	t, _ := req.ParamString("request_type")
	return t
}

func correlationParams(req Event) map[string]Value {
	out := map[string]Value{}
	for _, key := range []string{"request_type", "requester", "responder", "request_id"} {
		if v, ok := req.Param(key); ok {
			out[key] = v
		}
	}
	return out
}
