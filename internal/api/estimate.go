package api

import (
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/modelgate/gateway/internal/pricing"
)

type tokenizeRequest struct {
	Text string `json:"text"`
}

type tokenizeResponse struct {
	Tokens     int `json:"tokens"`
	Characters int `json:"characters"`
}

// TokenizeHandler estimates the token count of a text without calling any
// provider. The estimate is the pricing heuristic, not a real tokenizer.
func TokenizeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req tokenizeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		writeJSON(w, http.StatusOK, tokenizeResponse{
			Tokens:     pricing.EstimateTokens(req.Text),
			Characters: utf8.RuneCountInString(req.Text),
		})
	})
}

type costRequest struct {
	Model string        `json:"model"`
	Usage pricing.Usage `json:"usage"`
}

// CostHandler computes a cost estimate for the given usage and model.
func CostHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req costRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		if req.Usage.PromptTokens < 0 || req.Usage.CompletionTokens < 0 {
			writeError(w, http.StatusBadRequest, "token counts must not be negative")
			return
		}

		writeJSON(w, http.StatusOK, pricing.CalculateCost(req.Usage, req.Model))
	})
}
