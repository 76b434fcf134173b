package upstream

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient speaks the Anthropic text-completion API, whose response
// shape ({completion, stop_reason, usage}) is what the claude parser
// normalizes.
type AnthropicClient struct {
	upstream   string
	apiKey     string
	httpClient *http.Client
}

const (
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
)

func NewAnthropicClient(upstream, apiKey string, transport http.RoundTripper) *AnthropicClient {
	return &AnthropicClient{
		upstream:   strings.TrimRight(upstream, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(transport),
	}
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (map[string]any, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	body := anthropic.CompleteRequest{
		Model:             anthropic.Model(req.Model),
		Prompt:            anthropicPrompt(req),
		MaxTokensToSample: maxTokens,
	}

	return postJSON(ctx, c.httpClient, c.upstream+"/v1/complete", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, body)
}

// anthropicPrompt renders the conversation in the Human/Assistant turn
// format the text-completion endpoint requires.
func anthropicPrompt(req Request) string {
	var builder strings.Builder
	for _, message := range userMessages(req) {
		switch strings.ToLower(message.Role) {
		case "assistant":
			builder.WriteString("\n\nAssistant: ")
		default:
			builder.WriteString("\n\nHuman: ")
		}
		builder.WriteString(message.Content)
	}
	builder.WriteString("\n\nAssistant:")
	return builder.String()
}
