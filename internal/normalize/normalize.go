package normalize

import (
	"errors"
	"log/slog"
	"strings"
)

// Provider identifies a supported upstream response shape.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderClaude  Provider = "claude"
	ProviderGemini  Provider = "gemini"
	ProviderMistral Provider = "mistral"
	ProviderLocal   Provider = "local"
)

// Resolve maps a provider type token to the parser kind that handles it.
// Matching is case-insensitive. Unknown tokens resolve to the local parser;
// the second return reports whether the token was recognized.
func Resolve(providerType string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case "openai", "azure-openai":
		return ProviderOpenAI, true
	case "claude", "anthropic":
		return ProviderClaude, true
	case "gemini", "google":
		return ProviderGemini, true
	case "mistral":
		return ProviderMistral, true
	case "local":
		return ProviderLocal, true
	default:
		return ProviderLocal, false
	}
}

// Normalizer converts raw provider payloads into canonical envelopes.
// Aside from logging it is stateless; concurrent use is safe.
type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Parse dispatches the payload to the parser for the declared provider type
// and returns exactly one of a canonical response or a canonical error.
// Parse never panics past this boundary: any parser failure becomes an
// ErrorEnvelope with status 500 carrying the original message in
// details.originalError.
func (n *Normalizer) Parse(providerType string, payload map[string]any) (*Response, *ErrorEnvelope) {
	kind, known := Resolve(providerType)
	if !known {
		n.logger.Warn("unknown provider type; falling back to local parser", "provider_type", providerType)
	}

	var (
		response *Response
		err      error
	)
	switch kind {
	case ProviderOpenAI:
		response, err = parseOpenAI(payload)
	case ProviderClaude:
		response, err = parseClaude(payload)
	case ProviderGemini:
		response, err = parseGemini(payload)
	case ProviderMistral:
		response, err = parseMistral(payload)
	default:
		response, err = parseLocal(payload)
	}

	if err != nil {
		n.logger.Warn("failed to parse provider response", "provider_type", providerType, "error", err)
		return nil, NewErrorEnvelope(err.Error(), 500, map[string]any{
			"originalError": err.Error(),
			"providerType":  providerType,
		})
	}
	return response, nil
}

// parseOpenAI handles OpenAI chat and legacy completion payloads. Azure
// OpenAI responses share this shape and are routed here as well.
func parseOpenAI(payload map[string]any) (*Response, error) {
	choices := sliceField(payload, "choices")
	if len(choices) == 0 {
		return nil, errors.New("Invalid OpenAI response format")
	}
	choice := mapAt(choices, 0)
	message := mapField(choice, "message")

	content := stringField(message, "content")
	if content == "" {
		content = stringField(choice, "text")
	}

	usage := mapField(payload, "usage")
	response := newResponse(
		content,
		stringField(payload, "model"),
		stringField(choice, "finish_reason"),
		Stats{
			PromptTokens:     intField(usage, "prompt_tokens"),
			CompletionTokens: intField(usage, "completion_tokens"),
			// OpenAI reports its own total; trust it as-is.
			TotalTokens: intField(usage, "total_tokens"),
		},
	)

	if call := mapField(message, "function_call"); call != nil {
		response.IsFunctionCall = true
		response.FunctionCall = &FunctionCall{
			Name: stringField(call, "name"),
			// Arguments stay exactly as delivered (a raw JSON string for
			// OpenAI); parsing them is the extractor's job, not ours.
			Arguments: call["arguments"],
		}
	}

	return response, nil
}

func parseClaude(payload map[string]any) (*Response, error) {
	completion := stringField(payload, "completion")
	if completion == "" {
		return nil, errors.New("Invalid Claude response format")
	}

	model := stringField(payload, "model")
	if model == "" {
		model = "claude"
	}

	usage := mapField(payload, "usage")
	prompt := intField(usage, "input_tokens")
	output := intField(usage, "output_tokens")
	return newResponse(
		completion,
		model,
		stringField(payload, "stop_reason"),
		Stats{
			PromptTokens:     prompt,
			CompletionTokens: output,
			// Anthropic never sends a total; always recompute.
			TotalTokens: prompt + output,
		},
	), nil
}

func parseGemini(payload map[string]any) (*Response, error) {
	candidates := sliceField(payload, "candidates")
	if len(candidates) == 0 {
		return nil, errors.New("Invalid Gemini response format")
	}
	candidate := mapAt(candidates, 0)

	var content strings.Builder
	for _, raw := range sliceField(mapField(candidate, "content"), "parts") {
		part, _ := raw.(map[string]any)
		content.WriteString(stringField(part, "text"))
	}

	model := stringField(payload, "model")
	if model == "" {
		model = "gemini"
	}

	usage := mapField(payload, "usageMetadata")
	prompt := intField(usage, "promptTokenCount")
	output := intField(usage, "candidatesTokenCount")
	return newResponse(
		content.String(),
		model,
		stringField(candidate, "finishReason"),
		Stats{
			PromptTokens:     prompt,
			CompletionTokens: output,
			TotalTokens:      prompt + output,
		},
	), nil
}

func parseMistral(payload map[string]any) (*Response, error) {
	choices := sliceField(payload, "choices")
	if len(choices) == 0 {
		return nil, errors.New("Invalid Mistral response format")
	}
	choice := mapAt(choices, 0)
	message := mapField(choice, "message")

	usage := mapField(payload, "usage")
	response := newResponse(
		stringField(message, "content"),
		stringField(payload, "model"),
		stringField(choice, "finish_reason"),
		Stats{
			PromptTokens:     intField(usage, "prompt_tokens"),
			CompletionTokens: intField(usage, "completion_tokens"),
			TotalTokens:      intField(usage, "total_tokens"),
		},
	)

	if call := mapField(message, "function_call"); call != nil {
		response.IsFunctionCall = true
		response.FunctionCall = &FunctionCall{
			Name:      stringField(call, "name"),
			Arguments: call["arguments"],
		}
	}

	return response, nil
}

// parseLocal handles self-hosted and otherwise unrecognized models, which
// tend to put the generated text under whichever top-level key the serving
// stack favors.
func parseLocal(payload map[string]any) (*Response, error) {
	if payload == nil {
		return nil, errors.New("Invalid local model response format")
	}

	content := ""
	for _, key := range []string{"text", "content", "message", "output"} {
		if value := stringField(payload, key); value != "" {
			content = value
			break
		}
	}

	model := stringField(payload, "model")
	if model == "" {
		model = "local-model"
	}

	prompt := intField(payload, "prompt_tokens")
	output := intField(payload, "completion_tokens")
	return newResponse(
		content,
		model,
		stringField(payload, "finish_reason"),
		Stats{
			PromptTokens:     prompt,
			CompletionTokens: output,
			TotalTokens:      prompt + output,
		},
	), nil
}
