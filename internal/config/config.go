// Package config handles KAIREI system configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order. An explicit
// path (from --config) is checked first. Then: ./config.yaml,
// ~/.config/kairei/config.yaml, /config/config.yaml,
// /etc/kairei/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "kairei", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/kairei/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches DefaultSearchPaths and returns the first
// that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Duration wraps time.Duration, serializing as a millisecond integer in
// both JSON and YAML (spec.md §6: "Durations serialize as millisecond
// integers"), mirroring internal/scheduler.Duration's wrapper shape but
// with a numeric wire format instead of a Go duration string.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(d.Milliseconds(), 10)), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	d.Duration = time.Duration(ms) * time.Millisecond
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Milliseconds(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err != nil {
		return err
	}
	d.Duration = time.Duration(ms) * time.Millisecond
	return nil
}

// SystemConfig is the top-level runtime configuration for a KAIREI
// system (spec.md §6).
type SystemConfig struct {
	EventBufferSize     int                   `yaml:"event_buffer_size" env:"KAIREI_EVENT_BUFFER_SIZE"`
	MaxAgents           int                   `yaml:"max_agents" env:"KAIREI_MAX_AGENTS"`
	InitTimeout         Duration              `yaml:"init_timeout"`
	ShutdownTimeout     Duration              `yaml:"shutdown_timeout"`
	RequestTimeout      Duration              `yaml:"request_timeout"`
	AgentConfig         map[string]string     `yaml:"agent_config"`
	NativeFeatureConfig NativeFeatureConfig   `yaml:"native_feature_config"`
	ProviderConfigs     ProviderConfigs       `yaml:"provider_configs"`
	LogLevel            string                `yaml:"log_level" env:"KAIREI_LOG_LEVEL"`
	Listen              ListenConfig          `yaml:"listen"`
}

// NativeFeatureConfig configures C10's tick generator and metrics
// collector.
type NativeFeatureConfig struct {
	TickInterval     Duration `yaml:"tick_interval"`
	TickCron         string   `yaml:"tick_cron"` // optional cron expression; overrides TickInterval when set
	MetricsEnabled   bool     `yaml:"metrics_enabled"`
	MetricsInterval  Duration `yaml:"metrics_interval"`
	MetricsDBPath    string   `yaml:"metrics_db_path"`
}

// ListenConfig defines the API server's bind settings.
type ListenConfig struct {
	Address string `yaml:"address" env:"KAIREI_LISTEN_ADDRESS"`
	Port    int    `yaml:"port" env:"KAIREI_LISTEN_PORT"`
}

// ProviderConfigs is the named set of provider configurations plus
// which one is primary (spec.md §6).
type ProviderConfigs struct {
	Providers       map[string]ProviderConfig `yaml:"providers"`
	PrimaryProvider string                    `yaml:"primary_provider"`
}

// ProviderConfig configures a single LLM/capability provider.
type ProviderConfig struct {
	ProviderType   string                  `yaml:"provider_type"`
	Name           string                  `yaml:"name"`
	CommonConfig   CommonProviderConfig    `yaml:"common_config"`
	Endpoint       EndpointConfig          `yaml:"endpoint"`
	ProviderSpecific map[string]string     `yaml:"provider_specific"`
	PluginConfigs  map[string]PluginConfig `yaml:"plugin_configs"`
}

// CommonProviderConfig holds the fields shared by chat/generate
// providers.
type CommonProviderConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Model       string  `yaml:"model"`
}

// EndpointConfig overrides a provider's network location.
type EndpointConfig struct {
	URL          string `yaml:"url,omitempty"`
	APIVersion   string `yaml:"api_version,omitempty"`
	DeploymentID string `yaml:"deployment_id,omitempty"`
}

// PluginKind discriminates a PluginConfig variant.
type PluginKind string

const (
	PluginMemory       PluginKind = "memory"
	PluginRag          PluginKind = "rag"
	PluginSearch       PluginKind = "search"
	PluginSharedMemory PluginKind = "shared_memory"
	PluginUnknown      PluginKind = "unknown"
)

// PluginConfig is a provider-attached plugin's configuration. Settings
// is the plugin-specific payload, kept untyped (mirrors
// ProviderConfig.ProviderSpecific) since each plugin kind defines its
// own shape.
type PluginConfig struct {
	Kind     PluginKind        `yaml:"kind"`
	Settings map[string]string `yaml:"settings"`
}

// SecretConfig holds per-provider secrets, loaded from a separate file
// than the main config so secrets never need to live in the checked-in
// config.yaml (spec.md §6).
type SecretConfig struct {
	Providers map[string]ProviderSecret `yaml:"providers"`
}

// ProviderSecret is one provider's credentials.
type ProviderSecret struct {
	APIKey         string            `yaml:"api_key" env:"KAIREI_API_KEY"`
	AdditionalAuth map[string]string `yaml:"additional_auth"`
}

// Configured reports whether a provider secret carries an API key.
func (s ProviderSecret) Configured() bool { return s.APIKey != "" }

// Load reads SystemConfig from a YAML file, expands environment
// variables textually (as the teacher's Load did), applies defaults,
// overlays os-environment variables via struct tags (so deployment
// overrides/secrets never need to touch the checked-in file), and
// validates the result.
func Load(path string) (*SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &SystemConfig{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config env overlay: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadSecrets reads a SecretConfig from path, applying the same
// env-var overlay as Load.
func LoadSecrets(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &SecretConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("secret env overlay: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// After this, callers can read any field without checking for zero
// values.
func (c *SystemConfig) applyDefaults() {
	if c.EventBufferSize == 0 {
		c.EventBufferSize = 1000
	}
	if c.MaxAgents == 0 {
		c.MaxAgents = 100
	}
	if c.InitTimeout.Duration == 0 {
		c.InitTimeout = Duration{10 * time.Second}
	}
	if c.ShutdownTimeout.Duration == 0 {
		c.ShutdownTimeout = Duration{30 * time.Second}
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = Duration{30 * time.Second}
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.NativeFeatureConfig.TickInterval.Duration == 0 {
		c.NativeFeatureConfig.TickInterval = Duration{time.Second}
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *SystemConfig) Validate() error {
	if c.EventBufferSize < 1 {
		return fmt.Errorf("event_buffer_size %d must be positive", c.EventBufferSize)
	}
	if c.MaxAgents < 1 {
		return fmt.Errorf("max_agents %d must be positive", c.MaxAgents)
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.ProviderConfigs.PrimaryProvider != "" {
		if _, ok := c.ProviderConfigs.Providers[c.ProviderConfigs.PrimaryProvider]; !ok {
			return fmt.Errorf("primary_provider %q is not in providers", c.ProviderConfigs.PrimaryProvider)
		}
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default SystemConfig with no providers configured.
func Default() *SystemConfig {
	cfg := &SystemConfig{}
	cfg.applyDefaults()
	return cfg
}
