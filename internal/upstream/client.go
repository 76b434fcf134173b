// Package upstream dispatches chat requests to the configured model
// providers. Clients build provider-native request bodies but return the
// raw decoded response payload; converting that payload into the canonical
// envelope is the normalizer's job, not this package's.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 60 * time.Second
	maxResponseBytes      = 4 << 20
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request. Either Messages or
// Prompt is set; clients translate to whichever form their provider takes.
type Request struct {
	Model       string
	Messages    []Message
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client sends a completion request to one provider and returns the raw
// decoded JSON payload.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (map[string]any, error)
}

func newHTTPClient(transport http.RoundTripper) *http.Client {
	return &http.Client{Timeout: defaultRequestTimeout, Transport: transport}
}

// postJSON sends body as JSON and decodes the response payload. Upstream
// error statuses become errors that carry the status code and response
// snippet, so the caller's error classification can key off them.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, errorSnippet(raw))
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	return payload, nil
}

func errorSnippet(raw []byte) string {
	snippet := strings.TrimSpace(string(raw))
	if len(snippet) > 512 {
		snippet = snippet[:512]
	}
	if snippet == "" {
		return "(empty body)"
	}
	return snippet
}

// flattenPrompt renders a request as a single prompt string for providers
// that take plain text instead of a message list.
func flattenPrompt(req Request) string {
	if len(req.Messages) == 0 {
		return req.Prompt
	}
	parts := make([]string, 0, len(req.Messages))
	for _, message := range req.Messages {
		parts = append(parts, message.Content)
	}
	return strings.Join(parts, "\n")
}

// userMessages returns the request as a message list, synthesizing a single
// user message from Prompt when no messages were given.
func userMessages(req Request) []Message {
	if len(req.Messages) > 0 {
		return req.Messages
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil
	}
	return []Message{{Role: "user", Content: req.Prompt}}
}
