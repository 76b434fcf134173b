package upstream

import (
	"net/http"
	"os"
	"sort"

	"github.com/modelgate/gateway/internal/config"
)

// Registry resolves provider names to clients.
type Registry struct {
	clients map[string]Client
	models  map[string]string
}

func NewRegistry(clients ...Client) *Registry {
	registry := &Registry{
		clients: make(map[string]Client, len(clients)),
		models:  make(map[string]string, len(clients)),
	}
	for _, client := range clients {
		registry.clients[client.Name()] = client
	}
	return registry
}

// FromConfig builds a registry holding a client for every enabled provider.
// API keys are read from the environment variable each provider names. A nil
// transport means http.DefaultTransport.
func FromConfig(providers map[string]config.ProviderConfig, transport http.RoundTripper) *Registry {
	registry := NewRegistry()
	for name, provider := range providers {
		if !provider.Enabled {
			continue
		}

		apiKey := ""
		if provider.APIKeyEnv != "" {
			apiKey = os.Getenv(provider.APIKeyEnv)
		}

		var client Client
		switch name {
		case "openai":
			client = NewOpenAIClient(provider.Upstream, apiKey, transport)
		case "azure-openai":
			client = NewAzureOpenAIClient(provider.Upstream, apiKey, transport)
		case "anthropic":
			client = NewAnthropicClient(provider.Upstream, apiKey, transport)
		case "gemini":
			client = NewGeminiClient(provider.Upstream, apiKey, transport)
		case "mistral":
			client = NewMistralClient(provider.Upstream, apiKey, transport)
		default:
			// Unrecognized provider names are served by the local client,
			// mirroring the normalizer's fallback arm.
			client = NewLocalClient(provider.Upstream, transport)
		}

		registry.clients[name] = client
		registry.models[name] = provider.Model
	}
	return registry
}

func (r *Registry) Get(name string) (Client, bool) {
	client, ok := r.clients[name]
	return client, ok
}

// DefaultModel returns the configured default model for a provider.
func (r *Registry) DefaultModel(name string) string {
	return r.models[name]
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
