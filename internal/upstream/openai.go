package upstream

import (
	"context"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient speaks the OpenAI chat completions API. Mistral exposes the
// same wire shape, so MistralClient reuses the request construction with a
// different name and base URL.
type OpenAIClient struct {
	name       string
	upstream   string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(upstream, apiKey string, transport http.RoundTripper) *OpenAIClient {
	return &OpenAIClient{
		name:       "openai",
		upstream:   strings.TrimRight(upstream, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(transport),
	}
}

func NewMistralClient(upstream, apiKey string, transport http.RoundTripper) *OpenAIClient {
	client := NewOpenAIClient(upstream, apiKey, transport)
	client.name = "mistral"
	return client
}

func (c *OpenAIClient) Name() string {
	return c.name
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (map[string]any, error) {
	return postJSON(ctx, c.httpClient, c.upstream+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, chatCompletionBody(req))
}

// AzureOpenAIClient speaks the Azure OpenAI deployment API: same body as
// OpenAI, but the deployment name lives in the URL and the key travels in
// the api-key header.
type AzureOpenAIClient struct {
	upstream   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

const azureAPIVersion = "2024-02-01"

func NewAzureOpenAIClient(upstream, apiKey string, transport http.RoundTripper) *AzureOpenAIClient {
	return &AzureOpenAIClient{
		upstream:   strings.TrimRight(upstream, "/"),
		apiKey:     apiKey,
		apiVersion: azureAPIVersion,
		httpClient: newHTTPClient(transport),
	}
}

func (c *AzureOpenAIClient) Name() string {
	return "azure-openai"
}

func (c *AzureOpenAIClient) Complete(ctx context.Context, req Request) (map[string]any, error) {
	url := c.upstream + "/openai/deployments/" + req.Model + "/chat/completions?api-version=" + c.apiVersion
	return postJSON(ctx, c.httpClient, url, map[string]string{
		"api-key": c.apiKey,
	}, chatCompletionBody(req))
}

func chatCompletionBody(req Request) openai.ChatCompletionRequest {
	messages := userMessages(req)
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    converted,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}
