package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GeminiClient speaks the Google Generative Language generateContent API.
type GeminiClient struct {
	upstream   string
	apiKey     string
	httpClient *http.Client
}

func NewGeminiClient(upstream, apiKey string, transport http.RoundTripper) *GeminiClient {
	return &GeminiClient{
		upstream:   strings.TrimRight(upstream, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(transport),
	}
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (map[string]any, error) {
	endpoint := c.upstream + "/v1beta/models/" + req.Model + ":generateContent?key=" + url.QueryEscape(c.apiKey)

	contents := make([]map[string]any, 0, len(userMessages(req)))
	for _, message := range userMessages(req) {
		role := "user"
		if strings.ToLower(message.Role) == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": message.Content}},
		})
	}

	body := map[string]any{"contents": contents}
	generationConfig := map[string]any{}
	if req.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		generationConfig["temperature"] = req.Temperature
	}
	if len(generationConfig) > 0 {
		body["generationConfig"] = generationConfig
	}

	return postJSON(ctx, c.httpClient, endpoint, nil, body)
}
