package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelgate/gateway/internal/config"
)

type recordedRequest struct {
	Path    string
	Query   string
	Headers http.Header
	Body    map[string]any
}

func fakeUpstream(t *testing.T, status int, response string) (*httptest.Server, chan recordedRequest) {
	t.Helper()

	requests := make(chan recordedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		var body map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		requests <- recordedRequest{
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: r.Header.Clone(),
			Body:    body,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"model":"gpt-4","choices":[{"message":{"content":"hi"}}]}`)
	client := NewOpenAIClient(server.URL, "sk-test", nil)

	payload, err := client.Complete(context.Background(), Request{
		Model:     "gpt-4",
		Messages:  []Message{{Role: "user", Content: "say hi"}},
		MaxTokens: 16,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if payload["model"] != "gpt-4" {
		t.Fatalf("payload model=%v, want gpt-4", payload["model"])
	}

	got := <-requests
	if got.Path != "/v1/chat/completions" {
		t.Fatalf("path=%q, want /v1/chat/completions", got.Path)
	}
	if auth := got.Headers.Get("Authorization"); auth != "Bearer sk-test" {
		t.Fatalf("authorization=%q, want Bearer sk-test", auth)
	}
	if got.Body["model"] != "gpt-4" {
		t.Fatalf("request model=%v, want gpt-4", got.Body["model"])
	}
	messages, _ := got.Body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages len=%d, want 1", len(messages))
	}
}

func TestOpenAIClientSynthesizesUserMessageFromPrompt(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	client := NewOpenAIClient(server.URL, "sk-test", nil)

	if _, err := client.Complete(context.Background(), Request{Model: "gpt-4", Prompt: "hello"}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	got := <-requests
	messages, _ := got.Body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages len=%d, want 1", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "hello" {
		t.Fatalf("message=%v, want user hello", first)
	}
}

func TestOpenAIClientUpstreamErrorCarriesStatus(t *testing.T) {
	t.Parallel()

	server, _ := fakeUpstream(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`)
	client := NewOpenAIClient(server.URL, "sk-test", nil)

	_, err := client.Complete(context.Background(), Request{Model: "gpt-4", Prompt: "x"})
	if err == nil {
		t.Fatal("Complete() succeeded on 429 upstream")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error=%q, want status code in message", err)
	}
}

func TestAzureOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"azure"}}]}`)
	client := NewAzureOpenAIClient(server.URL, "azure-key", nil)

	if _, err := client.Complete(context.Background(), Request{Model: "gpt-4", Prompt: "hi"}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	got := <-requests
	if got.Path != "/openai/deployments/gpt-4/chat/completions" {
		t.Fatalf("path=%q, want azure deployment path", got.Path)
	}
	if !strings.Contains(got.Query, "api-version=") {
		t.Fatalf("query=%q, want api-version", got.Query)
	}
	if key := got.Headers.Get("api-key"); key != "azure-key" {
		t.Fatalf("api-key=%q, want azure-key", key)
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"completion":"hello","stop_reason":"stop_sequence"}`)
	client := NewAnthropicClient(server.URL, "ant-key", nil)

	payload, err := client.Complete(context.Background(), Request{
		Model: "claude-2",
		Messages: []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if payload["completion"] != "hello" {
		t.Fatalf("payload completion=%v, want hello", payload["completion"])
	}

	got := <-requests
	if got.Path != "/v1/complete" {
		t.Fatalf("path=%q, want /v1/complete", got.Path)
	}
	if key := got.Headers.Get("x-api-key"); key != "ant-key" {
		t.Fatalf("x-api-key=%q, want ant-key", key)
	}
	if version := got.Headers.Get("anthropic-version"); version == "" {
		t.Fatal("anthropic-version header missing")
	}
	prompt, _ := got.Body["prompt"].(string)
	if !strings.Contains(prompt, "\n\nHuman: first") || !strings.Contains(prompt, "\n\nAssistant: reply") {
		t.Fatalf("prompt=%q, want Human/Assistant turns", prompt)
	}
	if !strings.HasSuffix(prompt, "\n\nAssistant:") {
		t.Fatalf("prompt=%q, want trailing Assistant turn", prompt)
	}
	if tokens, _ := got.Body["max_tokens_to_sample"].(float64); tokens != defaultAnthropicMaxTokens {
		t.Fatalf("max_tokens_to_sample=%v, want default %d", tokens, defaultAnthropicMaxTokens)
	}
}

func TestGeminiClientComplete(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"gem"}]}}]}`)
	client := NewGeminiClient(server.URL, "gem-key", nil)

	if _, err := client.Complete(context.Background(), Request{Model: "gemini-pro", Prompt: "hi", MaxTokens: 8}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	got := <-requests
	if got.Path != "/v1beta/models/gemini-pro:generateContent" {
		t.Fatalf("path=%q, want generateContent path", got.Path)
	}
	if !strings.Contains(got.Query, "key=gem-key") {
		t.Fatalf("query=%q, want api key", got.Query)
	}
	contents, _ := got.Body["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents len=%d, want 1", len(contents))
	}
	generationConfig, _ := got.Body["generationConfig"].(map[string]any)
	if tokens, _ := generationConfig["maxOutputTokens"].(float64); tokens != 8 {
		t.Fatalf("maxOutputTokens=%v, want 8", tokens)
	}
}

func TestLocalClientComplete(t *testing.T) {
	t.Parallel()

	server, requests := fakeUpstream(t, http.StatusOK, `{"text":"local says hi"}`)
	client := NewLocalClient(server.URL, nil)

	if _, err := client.Complete(context.Background(), Request{Model: "llama3", Prompt: "hi"}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	got := <-requests
	if got.Path != "/v1/completions" {
		t.Fatalf("path=%q, want /v1/completions", got.Path)
	}
	if got.Body["prompt"] != "hi" || got.Body["model"] != "llama3" {
		t.Fatalf("body=%v, want prompt and model", got.Body)
	}
}

func TestFromConfigBuildsEnabledClients(t *testing.T) {
	providers := map[string]config.ProviderConfig{
		"openai":    {Enabled: true, Upstream: "https://api.openai.com", APIKeyEnv: "TEST_OPENAI_KEY", Model: "gpt-4"},
		"anthropic": {Enabled: false, Upstream: "https://api.anthropic.com", Model: "claude-2"},
		"local":     {Enabled: true, Upstream: "http://localhost:11434", Model: "llama3"},
	}
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	registry := FromConfig(providers, nil)

	names := registry.Names()
	if len(names) != 2 || names[0] != "local" || names[1] != "openai" {
		t.Fatalf("Names()=%v, want [local openai]", names)
	}
	if _, ok := registry.Get("anthropic"); ok {
		t.Fatal("disabled provider present in registry")
	}
	if model := registry.DefaultModel("openai"); model != "gpt-4" {
		t.Fatalf("DefaultModel(openai)=%q, want gpt-4", model)
	}
	client, ok := registry.Get("openai")
	if !ok {
		t.Fatal("openai client missing")
	}
	if openaiClient, ok := client.(*OpenAIClient); !ok || openaiClient.apiKey != "sk-from-env" {
		t.Fatalf("openai client=%T, want api key from env", client)
	}
}
