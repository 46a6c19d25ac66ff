package errs

import "strconv"

// Constructors below cover the sub-cases spec.md §7 enumerates for each
// kind. Each is a thin wrapper over New so call sites read as the
// taxonomy reads; all return *Error so callers can chain With* to add
// documentation/suggestion/context.

// Schema errors: missing field, wrong type, invalid structure.

func MissingField(field string) *Error {
	return New(KindSchema, "missing_field", "missing required field: "+field)
}

func WrongFieldType(field, want, got string) *Error {
	return New(KindSchema, "wrong_type", "field "+field+": expected "+want+", got "+got)
}

func InvalidStructure(reason string) *Error {
	return New(KindSchema, "invalid_structure", reason)
}

// Validation errors: invalid value, constraint violation, dependency.

func InvalidValue(field, reason string) *Error {
	return New(KindValidation, "invalid_value", "invalid value for "+field+": "+reason)
}

func ConstraintViolation(constraint string) *Error {
	return New(KindValidation, "constraint_violation", constraint)
}

func MissingDependency(name string) *Error {
	return New(KindValidation, "missing_dependency", "missing dependency: "+name)
}

// Provider errors: initialization failure, capability missing, misconfiguration.

func ProviderInitFailed(name string, cause error) *Error {
	return New(KindProvider, "init_failed", "failed to initialize provider "+name).WithCause(cause)
}

func CapabilityMissing(provider, capability string) *Error {
	return New(KindProvider, "capability_missing", "provider "+provider+" does not support capability "+capability)
}

func ProviderMisconfigured(name, reason string) *Error {
	return New(KindProvider, "misconfigured", "provider "+name+" misconfigured: "+reason)
}

// Event errors: unsupported type/request, invalid parameters, arity
// mismatch, type mismatch, send/receive failure, response timeout,
// lagged, already-registered, not-found, builder failure.

func UnsupportedEventType(name string) *Error {
	return New(KindEvent, "unsupported_type", "unsupported event type: "+name)
}

func InvalidParameters(reason string) *Error {
	return New(KindEvent, "invalid_parameters", reason)
}

func ArityMismatch(name string, want, got int) *Error {
	return New(KindEvent, "arity_mismatch", name).WithContext(
		"expected " + strconv.Itoa(want) + " parameters, got " + strconv.Itoa(got))
}

func ParameterTypeMismatch(name, want, got string) *Error {
	return New(KindEvent, "type_mismatch", "parameter "+name+": expected "+want+", got "+got)
}

func SendFailed(reason string) *Error {
	return New(KindEvent, "send_failed", reason)
}

func ResponseTimeout(requestID string) *Error {
	return New(KindEvent, "response_timeout", "no response for request "+requestID).
		WithSeverity(SeverityWarning)
}

func Lagged(count uint64) *Error {
	return New(KindEvent, "lagged", "subscriber fell behind").
		WithSeverity(SeverityWarning).
		WithContext(strconv.Itoa(int(count)) + " events dropped")
}

func AlreadyRegistered(name string) *Error {
	return New(KindEvent, "already_registered", name+" is already registered")
}

func EventNotFound(name string) *Error {
	return New(KindEvent, "not_found", "event not found: "+name)
}

func BuilderFailed(reason string) *Error {
	return New(KindEvent, "builder_failed", reason)
}

// Runtime/execution errors: agent not found / already exists, invalid
// operation, evaluation failed, shutdown timeout, send-shutdown failed.

func AgentNotFound(id string) *Error {
	return New(KindRuntime, "agent_not_found", "agent not found: "+id)
}

func AgentAlreadyExists(id string) *Error {
	return New(KindRuntime, "agent_already_exists", "agent already exists: "+id)
}

func InvalidOperation(op string) *Error {
	return New(KindRuntime, "invalid_operation", "invalid operation: "+op)
}

func EvaluationFailed(reason string) *Error {
	return New(KindRuntime, "evaluation_failed", reason)
}

func ShutdownTimeout(agentID string) *Error {
	return New(KindRuntime, "shutdown_timeout", "agent did not shut down in time: "+agentID).
		WithSeverity(SeverityWarning)
}

func SendShutdownFailed(agentID string) *Error {
	return New(KindRuntime, "send_shutdown_failed", "failed to signal shutdown to agent: "+agentID)
}

// Context errors: variable not found, lock timeout, deadlock,
// read-only violation, no parent scope, event send failed, state not found.

func VariableNotFound(name string) *Error {
	return New(KindContext, "variable_not_found", "variable not found: "+name)
}

func LockTimeout(name string) *Error {
	return New(KindContext, "lock_timeout", "lock acquisition timed out: "+name).
		WithSeverity(SeverityWarning)
}

func Deadlock(name string) *Error {
	return New(KindContext, "deadlock", "possible deadlock on: "+name).
		WithSeverity(SeverityCritical)
}

func ReadOnlyViolation(name string) *Error {
	return New(KindContext, "read_only_violation", "cannot write read-only variable: "+name)
}

func NoParentScope() *Error {
	return New(KindContext, "no_parent_scope", "no parent scope available")
}

func ContextSendFailed(reason string) *Error {
	return New(KindContext, "event_send_failed", reason)
}

func StateNotFound(name string) *Error {
	return New(KindContext, "state_not_found", "state not found: "+name)
}

// Type-check errors: undefined variable/type/function, type mismatch,
// invalid argument/return type, type inference error.

func UndefinedVariable(name string) *Error {
	return New(KindTypeCheck, "undefined_variable", "undefined variable: "+name)
}

func UndefinedType(name string) *Error {
	return New(KindTypeCheck, "undefined_type", "undefined type: "+name)
}

func UndefinedFunction(name string) *Error {
	return New(KindTypeCheck, "undefined_function", "undefined function: "+name)
}

func TypeMismatch(want, got string) *Error {
	return New(KindTypeCheck, "type_mismatch", "expected "+want+", got "+got)
}

func InvalidArgumentType(fn string, index int, want, got string) *Error {
	return New(KindTypeCheck, "invalid_argument_type", fn).
		WithContext("argument " + strconv.Itoa(index) + ": expected " + want + ", got " + got)
}

func InvalidReturnType(fn, want, got string) *Error {
	return New(KindTypeCheck, "invalid_return_type", fn+": expected "+want+", got "+got)
}

func TypeInferenceError(reason string) *Error {
	return New(KindTypeCheck, "type_inference_error", reason)
}

