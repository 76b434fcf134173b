package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelgate/gateway/internal/correlation"
	"github.com/modelgate/gateway/internal/extract"
	"github.com/modelgate/gateway/internal/history"
	"github.com/modelgate/gateway/internal/normalize"
	"github.com/modelgate/gateway/internal/observability"
	"github.com/modelgate/gateway/internal/pricing"
	"github.com/modelgate/gateway/internal/upstream"
)

const maxChatBodyBytes = 1 << 20

type ChatOptions struct {
	State         *state
	Logger        *slog.Logger
	Normalizer    *normalize.Normalizer
	Extractor     *extract.Extractor
	History       *history.Log
	Observability *observability.Runtime
}

type chatRequest struct {
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	Prompt      string             `json:"prompt"`
	Messages    []upstream.Message `json:"messages"`
	MaxTokens   int                `json:"maxTokens"`
	Temperature float32            `json:"temperature"`
}

// chatResponse is the canonical envelope plus two gateway extras: the cost
// estimate and, when the content embeds a recoverable tool call, the
// validated invocation.
type chatResponse struct {
	*normalize.Response
	Cost           *pricing.Estimate       `json:"cost,omitempty"`
	ToolInvocation *extract.ToolInvocation `json:"toolInvocation,omitempty"`
}

// ChatHandler dispatches a chat request to the selected provider and
// returns the normalized result. Failures of any kind, upstream or parse,
// come back as canonical error envelopes with a matching HTTP status.
func ChatHandler(options ChatOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req chatRequest
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes))
		if err := decoder.Decode(&req); err != nil {
			writeEnvelope(w, normalize.StandardizeError("invalid request: malformed JSON body", "gateway"))
			return
		}
		if strings.TrimSpace(req.Prompt) == "" && len(req.Messages) == 0 {
			writeEnvelope(w, normalize.StandardizeError("invalid request: prompt or messages is required", "gateway"))
			return
		}

		_, registry := options.State.snapshot()
		provider := resolveProvider(req.Provider, registry)
		client, ok := registry.Get(provider)
		if !ok {
			writeEnvelope(w, normalize.StandardizeError("invalid request: unknown provider \""+provider+"\"", "gateway"))
			return
		}

		model := strings.TrimSpace(req.Model)
		if model == "" {
			model = registry.DefaultModel(provider)
		}

		correlationID, _ := correlation.FromContext(r.Context())
		entry := history.Entry{
			CorrelationID: correlationID,
			Provider:      provider,
			Model:         model,
			Prompt:        promptSummary(req),
		}

		payload, err := client.Complete(r.Context(), upstream.Request{
			Model:       model,
			Messages:    req.Messages,
			Prompt:      req.Prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			envelope := normalize.StandardizeError(err, provider)
			options.Logger.WarnContext(r.Context(), "upstream request failed",
				"provider", provider, "model", model, "error", err)
			recordExchange(options, entry, envelope)
			writeEnvelope(w, envelope)
			return
		}

		response, envelope := options.Normalizer.Parse(provider, payload)
		if envelope != nil {
			if options.Observability != nil {
				options.Observability.RecordNormalizeFailure(provider)
			}
			recordExchange(options, entry, envelope)
			writeEnvelope(w, envelope)
			return
		}

		cost := pricing.CalculateCost(pricing.Usage{
			PromptTokens:     response.Stats.PromptTokens,
			CompletionTokens: response.Stats.CompletionTokens,
		}, response.Model)

		entry.Response = response
		entry.CostUSD = cost.TotalCost
		recordExchange(options, entry, nil)

		writeJSON(w, http.StatusOK, chatResponse{
			Response:       response,
			Cost:           &cost,
			ToolInvocation: resolveInvocation(options.Extractor, response),
		})
	})
}

// resolveProvider picks the provider for a request: the one asked for, else
// openai when registered, else the first registered provider.
func resolveProvider(requested string, registry *upstream.Registry) string {
	provider := strings.ToLower(strings.TrimSpace(requested))
	if provider != "" {
		return provider
	}
	if _, ok := registry.Get("openai"); ok {
		return "openai"
	}
	if names := registry.Names(); len(names) > 0 {
		return names[0]
	}
	return "openai"
}

// resolveInvocation turns the response's function call, provider-signaled
// or embedded in the content, into a validated invocation. Nil when there
// is none or validation fails; a chat response is complete without it.
func resolveInvocation(extractor *extract.Extractor, response *normalize.Response) *extract.ToolInvocation {
	var call *extract.ToolCall
	if response.IsFunctionCall && response.FunctionCall != nil {
		call = &extract.ToolCall{
			Name:      response.FunctionCall.Name,
			Arguments: response.FunctionCall.Arguments,
		}
	} else if strings.Contains(response.Content, "{") {
		// Every recoverable call shape carries a braced object, so plain
		// prose skips the extraction chain and its warnings entirely.
		call = extractor.ExtractToolCall(response.Content)
	}
	if call == nil {
		return nil
	}

	invocation, err := extractor.ProcessFunctionCall(call)
	if err != nil {
		return nil
	}
	return invocation
}

func recordExchange(options ChatOptions, entry history.Entry, envelope *normalize.ErrorEnvelope) {
	status := http.StatusOK
	if envelope != nil {
		status = envelope.StatusCode
		entry.Error = envelope.Message
	}
	if options.Observability != nil {
		options.Observability.RecordProviderRequest(entry.Provider, entry.Model, status)
	}
	if options.History != nil {
		options.History.Record(entry)
	}
}

// promptSummary flattens the request into the single prompt string the
// history log keeps, truncated to keep entries small.
func promptSummary(req chatRequest) string {
	prompt := req.Prompt
	if prompt == "" && len(req.Messages) > 0 {
		parts := make([]string, 0, len(req.Messages))
		for _, message := range req.Messages {
			parts = append(parts, message.Content)
		}
		prompt = strings.Join(parts, "\n")
	}
	const maxPromptBytes = 512
	if len(prompt) > maxPromptBytes {
		prompt = prompt[:maxPromptBytes]
	}
	return prompt
}
