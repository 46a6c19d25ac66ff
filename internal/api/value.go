package api

import "github.com/kairei-run/kairei/internal/eventbus"

// wireValue converts an eventbus.Value to a plain Go value JSON can
// encode directly, the same shape the evaluator's own FromEventValue
// coercion would see (internal/eval) but stopping at `any` instead of
// building a richer evaluator Value. eventbus.Value carries no
// MarshalJSON of its own (C1 stays a closed sum type, not a wire
// format), so this boundary owns the conversion.
func wireValue(v eventbus.Value) any {
	switch v.Kind() {
	case eventbus.KindNull:
		return nil
	case eventbus.KindInteger:
		i, _ := v.AsInt()
		return i
	case eventbus.KindFloat:
		f, _ := v.AsFloat()
		return f
	case eventbus.KindString:
		s, _ := v.AsString()
		return s
	case eventbus.KindBoolean:
		b, _ := v.AsBool()
		return b
	case eventbus.KindDuration:
		d, _ := v.AsDuration()
		return d.Milliseconds()
	case eventbus.KindList:
		l, _ := v.AsList()
		out := make([]any, len(l))
		for i, e := range l {
			out[i] = wireValue(e)
		}
		return out
	case eventbus.KindMap:
		m, _ := v.AsMap()
		return wireParams(m)
	default:
		return nil
	}
}

func wireParams(params map[string]eventbus.Value) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = wireValue(v)
	}
	return out
}

// wireEvent is the JSON shape an Event is rendered as, over REST
// responses and the event-stream websocket alike.
type wireEvent struct {
	Category   string         `json:"category"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  string         `json:"timestamp"`
}

var categoryNames = map[eventbus.Category]string{
	eventbus.CategorySystem:          "system",
	eventbus.CategoryLifecycle:       "lifecycle",
	eventbus.CategoryFeatureStatus:   "feature_status",
	eventbus.CategoryProviderStatus:  "provider_status",
	eventbus.CategoryMessage:         "message",
	eventbus.CategoryFailure:         "failure",
	eventbus.CategoryRequest:         "request",
	eventbus.CategoryResponseSuccess: "response_success",
	eventbus.CategoryResponseFailure: "response_failure",
	eventbus.CategoryCustom:          "custom",
	eventbus.CategoryStateUpdated:    "state_updated",
}

func toWireEvent(ev eventbus.Event) wireEvent {
	cat, ok := categoryNames[ev.Type.Category]
	if !ok {
		cat = "unknown"
	}
	return wireEvent{
		Category:   cat,
		Name:       ev.Type.Name,
		Parameters: wireParams(ev.Parameters),
		Timestamp:  ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
