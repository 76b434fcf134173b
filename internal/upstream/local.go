package upstream

import (
	"context"
	"net/http"
	"strings"
)

// LocalClient speaks to self-hosted completion servers. The request is the
// lowest-common-denominator prompt form; whatever comes back is left to the
// local parser's field precedence.
type LocalClient struct {
	upstream   string
	httpClient *http.Client
}

func NewLocalClient(upstream string, transport http.RoundTripper) *LocalClient {
	return &LocalClient{
		upstream:   strings.TrimRight(upstream, "/"),
		httpClient: newHTTPClient(transport),
	}
}

func (c *LocalClient) Name() string {
	return "local"
}

func (c *LocalClient) Complete(ctx context.Context, req Request) (map[string]any, error) {
	body := map[string]any{
		"model":  req.Model,
		"prompt": flattenPrompt(req),
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	return postJSON(ctx, c.httpClient, c.upstream+"/v1/completions", nil, body)
}
