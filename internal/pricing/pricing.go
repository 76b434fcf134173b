// Package pricing maps model names to per-1K-token prices and computes
// request cost estimates for billing display.
package pricing

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Usage carries the token counts a cost estimate is computed from. Absent
// fields are treated as zero.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Estimate is the computed cost breakdown. Model holds the resolved price
// table key, which may differ from the requested model name.
type Estimate struct {
	Model          string  `json:"model"`
	PromptCost     float64 `json:"promptCost"`
	CompletionCost float64 `json:"completionCost"`
	TotalCost      float64 `json:"totalCost"`
	Currency       string  `json:"currency"`
}

type modelPrice struct {
	name       string
	prompt     float64 // USD per 1K prompt tokens
	completion float64 // USD per 1K completion tokens
}

const fallbackModel = "gpt-3.5-turbo"

// Declaration order is the fuzzy-match order: resolution picks the first
// entry whose name is a substring of the requested model, not the longest
// match. Reordering this table is a behavior change.
var priceTable = []modelPrice{
	{name: "gpt-4", prompt: 0.03, completion: 0.06},
	{name: "gpt-4-32k", prompt: 0.06, completion: 0.12},
	{name: "gpt-3.5-turbo", prompt: 0.0015, completion: 0.002},
	{name: "gpt-3.5-turbo-16k", prompt: 0.003, completion: 0.004},
	{name: "claude-2", prompt: 0.01102, completion: 0.03268},
	{name: "claude-instant-1", prompt: 0.00163, completion: 0.00551},
	{name: "gemini-pro", prompt: 0.00025, completion: 0.0005},
	{name: "mistral-tiny", prompt: 0.00014, completion: 0.00042},
	{name: "mistral-small", prompt: 0.0006, completion: 0.0018},
	{name: "mistral-medium", prompt: 0.0025, completion: 0.0075},
	{name: "local-model", prompt: 0, completion: 0},
}

// CalculateCost computes the prompt/completion/total cost for the given
// usage against the resolved model price. It never fails: unknown models
// fall back to gpt-3.5-turbo pricing. All costs are rounded to 6 decimal
// places, half away from zero.
func CalculateCost(usage Usage, model string) Estimate {
	price := resolvePrice(model)

	promptCost := round6(float64(usage.PromptTokens) * price.prompt / 1000)
	completionCost := round6(float64(usage.CompletionTokens) * price.completion / 1000)

	return Estimate{
		Model:          price.name,
		PromptCost:     promptCost,
		CompletionCost: completionCost,
		TotalCost:      round6(promptCost + completionCost),
		Currency:       "USD",
	}
}

// resolvePrice finds the table entry for a model name: exact key first,
// then the first table key (in declared order) that appears as a substring
// of the name, then the fallback entry.
func resolvePrice(model string) modelPrice {
	model = strings.TrimSpace(model)

	for _, entry := range priceTable {
		if entry.name == model {
			return entry
		}
	}
	for _, entry := range priceTable {
		if strings.Contains(model, entry.name) {
			return entry
		}
	}
	for _, entry := range priceTable {
		if entry.name == fallbackModel {
			return entry
		}
	}
	return modelPrice{name: fallbackModel}
}

// EstimateTokens approximates the token count of text using the common
// ~4-characters-per-token heuristic. It is an estimate for display, not a
// tokenizer.
func EstimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	if chars == 0 {
		return 0
	}
	return int(math.Ceil(float64(chars) / 4))
}

func round6(value float64) float64 {
	return math.Round(value*1e6) / 1e6
}
