// Package errs provides KAIREI's structured error taxonomy (spec.md
// §7): a closed set of error kinds, each carrying a severity,
// documentation URL, suggestion, and free-form context, formatted for
// both log output and a human staring at a terminal.
//
// Grounded on internal/tools's ErrToolUnavailable struct-error idiom
// (a named Go type per failure instead of sentinel values or bare
// fmt.Errorf), generalized across the seven kinds spec.md names and
// given the common Severity/DocumentationURL/Suggestion/Context fields
// none of the teacher's individual error types carry.
package errs

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Kind is the closed set of error categories from spec.md §7.
type Kind int

const (
	KindSchema Kind = iota
	KindValidation
	KindProvider
	KindEvent
	KindRuntime
	KindContext
	KindTypeCheck
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "SchemaError"
	case KindValidation:
		return "ValidationError"
	case KindProvider:
		return "ProviderError"
	case KindEvent:
		return "EventError"
	case KindRuntime:
		return "RuntimeError"
	case KindContext:
		return "ContextError"
	case KindTypeCheck:
		return "TypeCheckError"
	default:
		return "UnknownError"
	}
}

// Severity ranks how urgently an error needs attention.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ansiColor returns the SGR color code for a severity, used only when
// output is a terminal.
func (s Severity) ansiColor() string {
	switch s {
	case SeverityInfo:
		return "36" // cyan
	case SeverityWarning:
		return "33" // yellow
	case SeverityError:
		return "31" // red
	case SeverityCritical:
		return "35" // magenta
	default:
		return "0"
	}
}

// Code identifies a specific error condition within a Kind, e.g.
// "missing_field" under KindSchema or "agent_not_found" under
// KindRuntime. Codes are snake_case and stable — they are meant to be
// grepped and linked from documentation.
type Code string

// Error is a structured KAIREI error (spec.md §7): a kind/code pair,
// a human message, a severity, and optional documentation/suggestion/
// context, rendered by Format.
type Error struct {
	Kind             Kind
	Code             Code
	Message          string
	Severity         Severity
	DocumentationURL string
	Suggestion       string
	Context          string
	Cause            error
}

// Error implements the error interface with the plain, non-colored
// single-line form; use Format for the full multi-line rendering.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// Format renders the full diagnostic: "[CODE] [SEVERITY] <Kind>:
// <message>", followed by optional Documentation/Suggestion/Context
// lines, colored by severity when w is a terminal.
func (e *Error) Format(w io.Writer) string {
	color, reset := "", ""
	if isTerminalWriter(w) {
		color = "\x1b[" + e.Severity.ansiColor() + "m"
		reset = "\x1b[0m"
	}

	out := fmt.Sprintf("%s[%s] [%s] %s: %s%s", color, e.Code, e.Severity, e.Kind, e.Message, reset)
	if e.DocumentationURL != "" {
		out += "\nDocumentation: " + e.DocumentationURL
	}
	if e.Suggestion != "" {
		out += "\nSuggestion: " + e.Suggestion
	}
	if e.Context != "" {
		out += "\nContext: " + e.Context
	}
	return out
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New builds an Error of the given kind/code/message at SeverityError,
// the common case; use the With* methods to refine it.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Severity: SeverityError}
}

func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

func (e *Error) WithDocs(url string) *Error {
	e.DocumentationURL = url
	return e
}

func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

func (e *Error) WithContext(ctx string) *Error {
	e.Context = ctx
	return e
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}
