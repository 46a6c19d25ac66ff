package errs

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestErrorImplementsErrorInterface(t *testing.T) {
	e := New(KindRuntime, "agent_not_found", "agent not found: bob")
	if e.Error() != `[agent_not_found] RuntimeError: agent not found: bob` {
		t.Errorf("unexpected Error(): %q", e.Error())
	}
}

func TestErrorWrapsWithCause(t *testing.T) {
	cause := errors.New("boom")
	e := ProviderInitFailed("anthropic", cause)
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to unwrap to cause")
	}
	if !strings.Contains(e.Error(), "boom") {
		t.Errorf("Error() should mention cause, got %q", e.Error())
	}
}

func TestFormatIncludesDocsSuggestionContext(t *testing.T) {
	e := MissingField("name").
		WithDocs("https://kairei.run/docs/errors/missing_field").
		WithSuggestion("add a name field").
		WithContext("while parsing agent definition")

	var buf bytes.Buffer
	out := e.Format(&buf)
	for _, want := range []string{"Documentation:", "Suggestion:", "Context:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q: %s", want, out)
		}
	}
}

func TestFormatHasNoColorForNonTerminal(t *testing.T) {
	e := New(KindValidation, "invalid_value", "bad value")
	var buf bytes.Buffer
	out := e.Format(&buf)
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no ANSI escapes for a non-file writer, got %q", out)
	}
}

func TestSeverityDefaults(t *testing.T) {
	cases := []struct {
		err  *Error
		want Severity
	}{
		{AgentNotFound("x"), SeverityError},
		{ShutdownTimeout("x"), SeverityWarning},
		{Deadlock("x"), SeverityCritical},
		{Lagged(3), SeverityWarning},
	}
	for _, c := range cases {
		if c.err.Severity != c.want {
			t.Errorf("%s: severity = %v, want %v", c.err.Code, c.err.Severity, c.want)
		}
	}
}

func TestKindStringMatchesTaxonomyNames(t *testing.T) {
	cases := map[Kind]string{
		KindSchema:     "SchemaError",
		KindValidation: "ValidationError",
		KindProvider:   "ProviderError",
		KindEvent:      "EventError",
		KindRuntime:    "RuntimeError",
		KindContext:    "ContextError",
		KindTypeCheck:  "TypeCheckError",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
