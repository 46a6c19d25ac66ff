// Package provider implements the Provider Registry (C8): LLM/capability
// provider lifecycle, health checks, and primary-provider selection, per
// spec.md §4.8. Grounded on internal/llm's Client interface and
// internal/llm/multi.go's name→client routing shape, generalized from a
// fixed Chat/ChatStream/Ping surface to the boundary spec.md §6 names:
// name, capabilities, initialize, execute, health_check, shutdown.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/eventbus"
)

// CapabilityKind discriminates a CapabilityType variant.
type CapabilityKind int

const (
	CapabilityChat CapabilityKind = iota
	CapabilityGenerate
	CapabilitySharedMemory
	CapabilityCustomKind
)

// CapabilityType names something a Provider can do (spec.md §6, "Provider
// trait"). Custom carries a Name, the way EventType carries a Name
// alongside its Category.
type CapabilityType struct {
	Kind CapabilityKind
	Name string
}

func Chat() CapabilityType         { return CapabilityType{Kind: CapabilityChat} }
func Generate() CapabilityType     { return CapabilityType{Kind: CapabilityGenerate} }
func SharedMemory() CapabilityType { return CapabilityType{Kind: CapabilitySharedMemory} }
func Custom(name string) CapabilityType {
	return CapabilityType{Kind: CapabilityCustomKind, Name: name}
}

// WillAction and Sistence are the named custom capabilities spec.md §6
// calls out explicitly.
var (
	WillAction = Custom("will_action")
	Sistence   = Custom("sistence")
)

func (c CapabilityType) String() string {
	switch c.Kind {
	case CapabilityChat:
		return "Chat"
	case CapabilityGenerate:
		return "Generate"
	case CapabilitySharedMemory:
		return "SharedMemory"
	default:
		return "Custom(" + c.Name + ")"
	}
}

// Message is a provider-neutral chat turn, generalizing internal/llm.Message.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a provider-neutral tool invocation, generalizing
// internal/llm.ToolCall's anonymous Function struct into a named one.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Request is what the Execution Context passes a Provider for a `think`
// or `request` operation.
type Request struct {
	Capability CapabilityType
	Model      string // overrides ProviderConfig.CommonConfig.Model when set
	Messages   []Message
	Tools      []map[string]any
	Options    map[string]string
}

// Response is a provider-neutral chat/generate result.
type Response struct {
	Model        string
	Message      Message
	InputTokens  int
	OutputTokens int
}

// Provider is the boundary every LLM/capability backend implements
// (spec.md §6, "Provider trait").
type Provider interface {
	Name() string
	Capabilities() []CapabilityType
	Initialize(cfg config.ProviderConfig, secret config.ProviderSecret) error
	Execute(ctx context.Context, req Request) (Response, error)
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Factory constructs an unconfigured Provider for a provider_type string.
// Concrete implementations register themselves via RegisterFactory from
// an init() in internal/provider/providers.
type Factory func() Provider

var (
	factoriesMu sync.Mutex
	factories   = map[string]Factory{}
)

// RegisterFactory makes providerType available to RegisterProvider.
// Re-registering the same name overwrites the prior factory (used by
// tests to install fakes).
func RegisterFactory(providerType string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[providerType] = f
}

func lookupFactory(providerType string) (Factory, bool) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	f, ok := factories[providerType]
	return f, ok
}

// ProviderState is the per-instance health tracked by the registry
// (spec.md §3, "Provider instance").
type ProviderState struct {
	IsHealthy       bool
	LastHealthCheck time.Time
	ErrorCount      int
	LastError       string
}

type instance struct {
	provider Provider
	config   config.ProviderConfig
	secret   config.ProviderSecret
	state    ProviderState
}

type ProviderAlreadyExists struct{ Name string }

func (e ProviderAlreadyExists) Error() string { return fmt.Sprintf("provider %q already registered", e.Name) }

type ProviderNotFound struct{ Name string }

func (e ProviderNotFound) Error() string { return fmt.Sprintf("provider %q not found", e.Name) }

type UnknownProviderType struct{ Type string }

func (e UnknownProviderType) Error() string {
	return fmt.Sprintf("unknown provider_type %q (no factory registered)", e.Type)
}

// Registry owns provider instances and the single process-wide primary
// selection (spec.md §7, "only the Provider Registry's primary-provider
// selection is process-wide").
type Registry struct {
	logger *slog.Logger
	bus    *eventbus.Bus
	router *Router

	mu        sync.RWMutex
	instances map[string]*instance
	primary   string
}

// New creates an empty Registry publishing lifecycle events on bus.
func New(logger *slog.Logger, bus *eventbus.Bus) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		bus:       bus,
		router:    NewRouter(),
		instances: map[string]*instance{},
	}
}

// RegisterProviders iterates cfgs.Providers, registering each. When
// cfgs.PrimaryProvider is unset, the Router suggests one advisory pick
// among the providers just registered (all assumed healthy, since no
// health check has run yet) rather than leaving primary unset.
func (r *Registry) RegisterProviders(cfgs config.ProviderConfigs, secrets config.SecretConfig) error {
	for name, pc := range cfgs.Providers {
		if err := r.RegisterProvider(name, pc, secrets.Providers[name]); err != nil {
			return fmt.Errorf("register provider %q: %w", name, err)
		}
	}
	primary := cfgs.PrimaryProvider
	if primary == "" {
		if suggested, ok := r.suggestPrimaryFromRouter(); ok {
			r.logger.Info("no primary_provider configured, using router suggestion", "provider_name", suggested)
			primary = suggested
		}
	}
	if primary != "" {
		if err := r.SetDefaultProvider(primary); err != nil {
			return err
		}
	}
	return nil
}

// suggestPrimaryFromRouter asks the Router to pick among every
// currently registered provider. Returns false if none are registered
// or none are eligible for the no-tools-required case RegisterProviders
// evaluates at startup.
func (r *Registry) suggestPrimaryFromRouter() (string, bool) {
	r.mu.RLock()
	healthy := make(map[string]bool, len(r.instances))
	for name := range r.instances {
		healthy[name] = true
	}
	r.mu.RUnlock()
	name, _, ok := r.router.SuggestPrimary(false, healthy)
	return name, ok
}

// RegisterProvider creates name via the factory for cfg.ProviderType,
// initializes it with cfg and secret, and publishes ProviderRegistered.
func (r *Registry) RegisterProvider(name string, cfg config.ProviderConfig, secret config.ProviderSecret) error {
	r.mu.Lock()
	if _, exists := r.instances[name]; exists {
		r.mu.Unlock()
		return ProviderAlreadyExists{Name: name}
	}
	r.mu.Unlock()

	factory, ok := lookupFactory(cfg.ProviderType)
	if !ok {
		return UnknownProviderType{Type: cfg.ProviderType}
	}

	p := factory()
	if err := p.Initialize(cfg, secret); err != nil {
		return fmt.Errorf("initialize provider %q: %w", name, err)
	}

	r.mu.Lock()
	r.instances[name] = &instance{provider: p, config: cfg, secret: secret}
	r.mu.Unlock()

	r.router.SetProfile(profileForProviderType(name, cfg.ProviderType))

	r.publish(eventbus.SystemType(eventbus.TypeProviderRegistered), map[string]eventbus.Value{
		"provider_name": eventbus.String(name),
		"provider_type": eventbus.String(cfg.ProviderType),
	})
	return nil
}

// SetDefaultProvider designates name as primary. name must already be
// registered.
func (r *Registry) SetDefaultProvider(name string) error {
	r.mu.Lock()
	if _, ok := r.instances[name]; !ok {
		r.mu.Unlock()
		return ProviderNotFound{Name: name}
	}
	r.primary = name
	r.mu.Unlock()

	r.publish(eventbus.SystemType(eventbus.TypeProviderPrimarySet), map[string]eventbus.Value{
		"provider_name": eventbus.String(name),
	})
	return nil
}

// ProviderNames returns the names of every currently registered
// provider, in no particular order.
func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	return names
}

// PrimaryProvider returns the currently designated primary, if any.
func (r *Registry) PrimaryProvider() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary, r.primary != ""
}

// GetProvider returns the Provider registered under name.
func (r *Registry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	if !ok {
		return nil, ProviderNotFound{Name: name}
	}
	return inst.provider, nil
}

// State returns the tracked ProviderState for name.
func (r *Registry) State(name string) (ProviderState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	if !ok {
		return ProviderState{}, ProviderNotFound{Name: name}
	}
	return inst.state, nil
}

// CheckProviderHealth calls the provider's health_check and updates its
// ProviderState. A failing check publishes a Failure event whose
// severity is "Error" when name is the primary provider, else "Warning"
// (spec.md §4.8).
func (r *Registry) CheckProviderHealth(ctx context.Context, name string) error {
	r.mu.Lock()
	inst, ok := r.instances[name]
	isPrimary := r.primary == name
	r.mu.Unlock()
	if !ok {
		return ProviderNotFound{Name: name}
	}

	err := inst.provider.HealthCheck(ctx)

	r.mu.Lock()
	inst.state.LastHealthCheck = time.Now()
	if err != nil {
		inst.state.IsHealthy = false
		inst.state.ErrorCount++
		inst.state.LastError = err.Error()
	} else {
		inst.state.IsHealthy = true
		inst.state.LastError = ""
	}
	r.mu.Unlock()

	if err != nil {
		severity := "Warning"
		if isPrimary {
			severity = "Error"
		}
		r.publish(eventbus.FailureType("ProviderHealthCheck"), map[string]eventbus.Value{
			"provider_name": eventbus.String(name),
			"severity":      eventbus.String(severity),
			"error":         eventbus.String(err.Error()),
		})
	}
	return err
}

// Shutdown invokes shutdown on every registered provider, removing each
// and publishing ProviderShutdown. Errors are collected but do not stop
// the sweep, mirroring ShutdownAll's best-effort approach in C7.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	r.mu.Unlock()

	var firstErr error
	for _, name := range names {
		r.mu.Lock()
		inst, ok := r.instances[name]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if err := inst.provider.Shutdown(ctx); err != nil {
			r.logger.Warn("provider shutdown failed", "provider_name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		r.mu.Lock()
		delete(r.instances, name)
		if r.primary == name {
			r.primary = ""
		}
		r.mu.Unlock()
		r.publish(eventbus.SystemType(eventbus.TypeProviderShutdown), map[string]eventbus.Value{
			"provider_name": eventbus.String(name),
		})
	}
	return firstErr
}

func (r *Registry) publish(t eventbus.EventType, params map[string]eventbus.Value) {
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(eventbus.NewEvent(t, params))
}
