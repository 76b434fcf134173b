package normalize

import "time"

// Stats carries token accounting for a single completion.
type Stats struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// FunctionCall is a provider-signaled structured invocation. Arguments are
// passed through exactly as the provider sent them: OpenAI delivers a raw
// JSON string, other shapes may deliver an object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// Response is the canonical success envelope every provider payload is
// normalized into.
type Response struct {
	Content        string        `json:"content"`
	IsFunctionCall bool          `json:"isFunctionCall"`
	FunctionCall   *FunctionCall `json:"functionCall"`
	Model          string        `json:"model"`
	FinishReason   string        `json:"finishReason"`
	Stats          Stats         `json:"stats"`
	Timestamp      string        `json:"timestamp"`
}

// ErrorEnvelope is the canonical failure envelope. It is returned in place
// of the success envelope; callers never see a raw provider failure.
type ErrorEnvelope struct {
	IsError    bool           `json:"error"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details"`
	Timestamp  string         `json:"timestamp"`
}

func (e *ErrorEnvelope) Error() string {
	return e.Message
}

func newResponse(content string, model string, finishReason string, stats Stats) *Response {
	if finishReason == "" {
		finishReason = "unknown"
	}
	return &Response{
		Content:      content,
		Model:        model,
		FinishReason: finishReason,
		Stats:        stats,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// NewErrorEnvelope builds a canonical error with a server-side timestamp.
func NewErrorEnvelope(message string, statusCode int, details map[string]any) *ErrorEnvelope {
	if statusCode == 0 {
		statusCode = 500
	}
	if details == nil {
		details = map[string]any{}
	}
	return &ErrorEnvelope{
		IsError:    true,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
