package eventregistry

import (
	"testing"

	"github.com/kairei-run/kairei/internal/eventbus"
)

func TestBuiltInPreRegistered(t *testing.T) {
	r := New()
	info, ok := r.Lookup(eventbus.SystemType(eventbus.TypeTick))
	if !ok {
		t.Fatal("expected Tick to be pre-registered")
	}
	if len(info.Parameters) != 1 || info.Parameters[0].Name != "delta_time" {
		t.Fatalf("unexpected Tick schema: %+v", info.Parameters)
	}
}

func TestRegisterBuiltInAgainFails(t *testing.T) {
	r := New()
	err := r.RegisterEvent(EventInfo{EventType: eventbus.SystemType(eventbus.TypeTick)})
	if _, ok := err.(BuiltInAlreadyRegisteredError); !ok {
		t.Fatalf("expected BuiltInAlreadyRegisteredError, got %v", err)
	}
}

func TestRegisterCustomTwiceFails(t *testing.T) {
	r := New()
	info := EventInfo{EventType: eventbus.CustomType("PlanTrip")}
	if err := r.RegisterEvent(info); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.RegisterEvent(info)
	if _, ok := err.(AlreadyRegisteredError); !ok {
		t.Fatalf("expected AlreadyRegisteredError, got %v", err)
	}
}

func TestValidateParametersArityMismatch(t *testing.T) {
	r := New()
	err := r.ValidateParameters(eventbus.SystemType(eventbus.TypeTick), nil)
	if _, ok := err.(ParametersLengthNotMatchedError); !ok {
		t.Fatalf("expected ParametersLengthNotMatchedError, got %v", err)
	}
}

func TestValidateParametersTypeMismatch(t *testing.T) {
	r := New()
	err := r.ValidateParameters(eventbus.SystemType(eventbus.TypeTick), []ParamSpec{
		{Name: "delta_time", Type: ParameterType{Kind: ParamString}},
	})
	if _, ok := err.(TypeMismatchError); !ok {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestValidateParametersSuccess(t *testing.T) {
	r := New()
	err := r.ValidateParameters(eventbus.SystemType(eventbus.TypeTick), []ParamSpec{
		{Name: "delta_time", Type: ParameterType{Kind: ParamFloat}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateParametersUnknownEvent(t *testing.T) {
	r := New()
	err := r.ValidateParameters(eventbus.CustomType("Nope"), nil)
	if _, ok := err.(NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
