package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port=%d, want 8080", cfg.Server.Port)
	}
	if cfg.History.MaxEntries != 10 {
		t.Fatalf("history.max_entries=%d, want 10", cfg.History.MaxEntries)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	raw := `
server:
  host: 127.0.0.1
  port: 9090
providers:
  local:
    enabled: true
    upstream: http://localhost:11434
    model: llama3
limits:
  enabled: false
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Address() != "127.0.0.1:9090" {
		t.Fatalf("address=%q, want 127.0.0.1:9090", cfg.Server.Address())
	}
	local := cfg.Providers["local"]
	if !local.Enabled || local.Upstream != "http://localhost:11434" || local.Model != "llama3" {
		t.Fatalf("local provider=%+v, want overridden values", local)
	}
	// Unmentioned providers keep their defaults.
	if openai := cfg.Providers["openai"]; openai.Upstream != "https://api.openai.com" {
		t.Fatalf("openai upstream=%q, want default", openai.Upstream)
	}
	if cfg.Limits.Enabled {
		t.Fatal("limits.enabled=true, want false")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	if err := os.WriteFile(path, []byte("serverr:\n  port: 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted unknown top-level field")
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1\n---\nserver:\n  port: 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "multiple yaml documents") {
		t.Fatalf("Load() error=%v, want multi-document rejection", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODELGATE_HOST", "10.0.0.1")
	t.Setenv("MODELGATE_PORT", "7000")
	t.Setenv("MODELGATE_LIMITS_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Host != "10.0.0.1" || cfg.Server.Port != 7000 {
		t.Fatalf("server=%+v, want env overrides applied", cfg.Server)
	}
	if cfg.Limits.Enabled {
		t.Fatal("limits.enabled=true, want env override false")
	}
}

func TestEnvInvalidPort(t *testing.T) {
	t.Setenv("MODELGATE_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() accepted invalid MODELGATE_PORT")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "bad port",
			mutate:  func(cfg *Config) { cfg.Server.Port = 0 },
			wantSub: "server.port",
		},
		{
			name: "no enabled providers",
			mutate: func(cfg *Config) {
				for name, provider := range cfg.Providers {
					provider.Enabled = false
					cfg.Providers[name] = provider
				}
			},
			wantSub: "at least one provider",
		},
		{
			name: "enabled provider missing upstream",
			mutate: func(cfg *Config) {
				provider := cfg.Providers["openai"]
				provider.Upstream = ""
				cfg.Providers["openai"] = provider
			},
			wantSub: "providers.openai.upstream",
		},
		{
			name: "enabled provider missing model",
			mutate: func(cfg *Config) {
				provider := cfg.Providers["openai"]
				provider.Model = ""
				cfg.Providers["openai"] = provider
			},
			wantSub: "providers.openai.model",
		},
		{
			name:    "limits without rate",
			mutate:  func(cfg *Config) { cfg.Limits.RequestsPerSecond = 0 },
			wantSub: "limits.requests_per_second",
		},
		{
			name:    "history cap",
			mutate:  func(cfg *Config) { cfg.History.MaxEntries = 0 },
			wantSub: "history.max_entries",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(cfg *Config) {
				cfg.Observability.OTel.Enabled = true
				cfg.Observability.OTel.Endpoint = " "
			},
			wantSub: "observability.otel.endpoint",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error=%q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	cfg := Default()
	cfg.Server.Port = 9999

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Fatalf("port=%d, want 9999", loaded.Server.Port)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	cfg := Default()
	cfg.Server.Port = -1

	if err := Save(path, cfg); err == nil {
		t.Fatal("Save() persisted invalid config")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("invalid config was written to disk")
	}
}

func TestEnabledProvidersSorted(t *testing.T) {
	t.Parallel()

	names := Default().EnabledProviders()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("EnabledProviders()=%v, want sorted unique names", names)
		}
	}
}
