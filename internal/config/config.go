package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig              `yaml:"server" json:"server"`
	Providers     map[string]ProviderConfig `yaml:"providers" json:"providers"`
	Limits        LimitsConfig              `yaml:"limits" json:"limits"`
	History       HistoryConfig             `yaml:"history" json:"history"`
	Observability ObservabilityConfig       `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig describes one upstream model provider. API keys never live
// in the file; APIKeyEnv names the environment variable holding the key.
type ProviderConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Upstream  string `yaml:"upstream" json:"upstream"`
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
	Model     string `yaml:"model" json:"model"`
}

type LimitsConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

type ObservabilityConfig struct {
	OTel OTelConfig `yaml:"otel" json:"otel"`
}

type OTelConfig struct {
	Enabled                bool    `yaml:"enabled" json:"enabled"`
	Endpoint               string  `yaml:"endpoint" json:"endpoint"`
	Insecure               bool    `yaml:"insecure" json:"insecure"`
	ServiceName            string  `yaml:"service_name" json:"service_name"`
	TracesEnabled          bool    `yaml:"traces_enabled" json:"traces_enabled"`
	MetricsEnabled         bool    `yaml:"metrics_enabled" json:"metrics_enabled"`
	SamplingRatio          float64 `yaml:"sampling_ratio" json:"sampling_ratio"`
	ExportTimeoutMS        int     `yaml:"export_timeout_ms" json:"export_timeout_ms"`
	MetricExportIntervalMS int     `yaml:"metric_export_interval_ms" json:"metric_export_interval_ms"`
}

const (
	defaultOTELEndpoint               = "localhost:4318"
	defaultOTELServiceName            = "modelgate"
	defaultOTELSamplingRatio          = 1.0
	defaultOTELExportTimeoutMS        = 3000
	defaultOTELMetricExportIntervalMS = 10000
)

const defaultHistoryMaxEntries = 10

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:   true,
				Upstream:  "https://api.openai.com",
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "gpt-3.5-turbo",
			},
			"azure-openai": {
				Enabled:   false,
				Upstream:  "https://example.openai.azure.com",
				APIKeyEnv: "AZURE_OPENAI_API_KEY",
				Model:     "gpt-4",
			},
			"anthropic": {
				Enabled:   true,
				Upstream:  "https://api.anthropic.com",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				Model:     "claude-2",
			},
			"gemini": {
				Enabled:   true,
				Upstream:  "https://generativelanguage.googleapis.com",
				APIKeyEnv: "GEMINI_API_KEY",
				Model:     "gemini-pro",
			},
			"mistral": {
				Enabled:   true,
				Upstream:  "https://api.mistral.ai",
				APIKeyEnv: "MISTRAL_API_KEY",
				Model:     "mistral-small",
			},
			"local": {
				Enabled:  false,
				Upstream: "http://localhost:8000",
				Model:    "local-model",
			},
		},
		Limits: LimitsConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		History: HistoryConfig{
			MaxEntries: defaultHistoryMaxEntries,
		},
		Observability: ObservabilityConfig{
			OTel: OTelConfig{
				Enabled:                false,
				Endpoint:               defaultOTELEndpoint,
				Insecure:               true,
				ServiceName:            defaultOTELServiceName,
				TracesEnabled:          true,
				MetricsEnabled:         true,
				SamplingRatio:          defaultOTELSamplingRatio,
				ExportTimeoutMS:        defaultOTELExportTimeoutMS,
				MetricExportIntervalMS: defaultOTELMetricExportIntervalMS,
			},
		},
	}
}

// Load reads configuration from path, layered over defaults, then applies
// environment overrides. A missing file is not an error; the defaults and
// environment alone form a valid configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true)
			decodeErr := decoder.Decode(&cfg)
			if errors.Is(decodeErr, io.EOF) {
				decodeErr = nil
			}
			if decodeErr != nil {
				return Config{}, fmt.Errorf("parse yaml %q: %w", path, decodeErr)
			}
			// Reject multi-document configs to keep runtime configuration
			// unambiguous and avoid hidden trailing documents.
			var trailing any
			trailingErr := decoder.Decode(&trailing)
			if trailingErr != nil && !errors.Is(trailingErr, io.EOF) {
				return Config{}, fmt.Errorf("parse yaml %q: %w", path, trailingErr)
			}
			if trailing != nil {
				return Config{}, fmt.Errorf("parse yaml %q: multiple yaml documents are not supported", path)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save validates the configuration and writes it to path as YAML. It backs
// the config update endpoint; an invalid configuration is never persisted.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

// Validate checks configuration invariants required at runtime.
func Validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", cfg.Server.Port)
	}

	if len(cfg.EnabledProviders()) == 0 {
		return errors.New("at least one provider must be enabled")
	}
	for name, provider := range cfg.Providers {
		if err := validateProvider(name, provider); err != nil {
			return err
		}
	}

	if cfg.Limits.Enabled {
		if cfg.Limits.RequestsPerSecond <= 0 {
			return fmt.Errorf("limits.requests_per_second must be > 0 when limits are enabled (got %f)", cfg.Limits.RequestsPerSecond)
		}
		if cfg.Limits.Burst <= 0 {
			return fmt.Errorf("limits.burst must be > 0 when limits are enabled (got %d)", cfg.Limits.Burst)
		}
	}

	if cfg.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be > 0 (got %d)", cfg.History.MaxEntries)
	}

	return validateOTelConfig(cfg.Observability.OTel)
}

// EnabledProviders returns the names of enabled providers in sorted order.
func (cfg Config) EnabledProviders() []string {
	names := make([]string, 0, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		if provider.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func validateProvider(name string, provider ProviderConfig) error {
	if !provider.Enabled {
		return nil
	}

	upstream := strings.TrimSpace(provider.Upstream)
	if upstream == "" {
		return fmt.Errorf("providers.%s.upstream is required", name)
	}
	parsed, err := url.Parse(upstream)
	if err != nil {
		return fmt.Errorf("parse providers.%s.upstream: %w", name, err)
	}
	if strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("providers.%s.upstream must include scheme and host (got %q)", name, provider.Upstream)
	}

	if strings.TrimSpace(provider.Model) == "" {
		return fmt.Errorf("providers.%s.model is required", name)
	}

	return nil
}

func validateOTelConfig(cfg OTelConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return errors.New("observability.otel.endpoint is required when observability.otel.enabled=true")
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return errors.New("observability.otel.service_name is required when observability.otel.enabled=true")
	}
	if !cfg.TracesEnabled && !cfg.MetricsEnabled {
		return errors.New("observability.otel requires traces_enabled and/or metrics_enabled when enabled")
	}
	if cfg.SamplingRatio < 0 || cfg.SamplingRatio > 1 {
		return fmt.Errorf("observability.otel.sampling_ratio must be between 0 and 1 (got %f)", cfg.SamplingRatio)
	}
	if cfg.ExportTimeoutMS <= 0 {
		return fmt.Errorf("observability.otel.export_timeout_ms must be > 0 (got %d)", cfg.ExportTimeoutMS)
	}
	if cfg.MetricExportIntervalMS <= 0 {
		return fmt.Errorf("observability.otel.metric_export_interval_ms must be > 0 (got %d)", cfg.MetricExportIntervalMS)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("MODELGATE_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if port := os.Getenv("MODELGATE_PORT"); port != "" {
		v, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid MODELGATE_PORT: %w", err)
		}
		cfg.Server.Port = v
	}

	if limits := os.Getenv("MODELGATE_LIMITS_ENABLED"); limits != "" {
		v, err := strconv.ParseBool(limits)
		if err != nil {
			return fmt.Errorf("invalid MODELGATE_LIMITS_ENABLED: %w", err)
		}
		cfg.Limits.Enabled = v
	}

	if endpoint := os.Getenv("MODELGATE_OTEL_ENDPOINT"); endpoint != "" {
		cfg.Observability.OTel.Endpoint = endpoint
		cfg.Observability.OTel.Enabled = true
	}

	return nil
}
