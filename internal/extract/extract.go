// Package extract recovers JSON objects and tool invocations embedded in
// free-form model output. Models rarely return clean machine-readable
// payloads, so extraction runs an ordered chain of fallbacks: whole-string
// parse, ```json fence, any ``` fence, then a flat {...} scan. The chain
// order is a contract relied on by callers and must not be reordered.
package extract

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidFunctionCall reports a function call without the required name.
var ErrInvalidFunctionCall = errors.New("invalid function call format")

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedAnyPattern  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	// Deliberately non-greedy and non-nested: an object containing another
	// object will not match and extraction degrades to nil.
	bracePattern    = regexp.MustCompile(`\{[^{}]*\}`)
	callToolPattern = regexp.MustCompile(`call_tool\(\s*['"]([^'"]+)['"]\s*,\s*(\{[^{}]*\})\s*\)`)
)

// ToolCall is a tool invocation recovered from model output. Arguments keep
// whatever shape the model produced; ProcessFunctionCall resolves them to a
// parameter object.
type ToolCall struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// ToolInvocation is a validated, execution-ready function call.
type ToolInvocation struct {
	ToolName   string         `json:"toolName"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  string         `json:"timestamp"`
}

// Extractor runs the extraction fallback chains. Aside from logging it is
// stateless; concurrent use is safe.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractJSON attempts to recover a JSON object from text. It never fails
// loudly: irrecoverable input yields nil with a warning logged.
//
// The whole string is always tried first, so text that is itself valid JSON
// never routes through fence extraction even when it also contains fences.
func (e *Extractor) ExtractJSON(text string) map[string]any {
	if object, ok := parseObject(text); ok {
		return object
	}

	if match := fencedJSONPattern.FindStringSubmatch(text); match != nil {
		if object, ok := parseObject(match[1]); ok {
			return object
		}
		e.logger.Warn("fenced json block did not parse", "block_bytes", len(match[1]))
	}

	if match := fencedAnyPattern.FindStringSubmatch(text); match != nil {
		// A non-json fence often holds code rather than data; a parse
		// failure here is expected and processing continues.
		if object, ok := parseObject(match[1]); ok {
			return object
		}
	}

	if match := bracePattern.FindString(text); match != "" {
		if object, ok := parseObject(match); ok {
			return object
		}
	}

	e.logger.Warn("no parseable json object found in text", "text_bytes", len(text))
	return nil
}

// ExtractToolCall attempts to recover a tool or function invocation from
// text. Returns nil when nothing recoverable is present.
func (e *Extractor) ExtractToolCall(text string) *ToolCall {
	if parsed := e.ExtractJSON(text); parsed != nil {
		if call := toolCallFromObject(parsed, "tool_call"); call != nil {
			return call
		}
		if call := toolCallFromObject(parsed, "function_call"); call != nil {
			return call
		}
		if name, ok := parsed["name"].(string); ok && name != "" {
			if parameters, ok := parsed["parameters"]; ok {
				return &ToolCall{Name: name, Arguments: parameters}
			}
			if arguments, ok := parsed["arguments"]; ok {
				return &ToolCall{Name: name, Arguments: arguments}
			}
		}
	}

	if match := callToolPattern.FindStringSubmatch(text); match != nil {
		arguments, ok := parseObject(match[2])
		if !ok {
			// A matched call with unparseable arguments is worse than no
			// match; returning a partial invocation would execute a tool
			// with the wrong inputs.
			e.logger.Warn("call_tool arguments did not parse", "tool", match[1])
			return nil
		}
		return &ToolCall{Name: match[1], Arguments: arguments}
	}

	return nil
}

// ProcessFunctionCall validates a provider-signaled function call and
// resolves its arguments into a parameter object. This is the one operation
// in the package that returns an error: a call without a name cannot be
// executed and the caller must handle it.
func (e *Extractor) ProcessFunctionCall(call *ToolCall) (*ToolInvocation, error) {
	if call == nil || strings.TrimSpace(call.Name) == "" {
		return nil, ErrInvalidFunctionCall
	}

	parameters := map[string]any{}
	switch typed := call.Arguments.(type) {
	case nil:
	case map[string]any:
		parameters = typed
	case string:
		if err := json.Unmarshal([]byte(typed), &parameters); err != nil {
			e.logger.Warn("function call arguments did not parse; substituting empty object", "tool", call.Name, "error", err)
			parameters = map[string]any{}
		}
	default:
		e.logger.Warn("function call arguments have unsupported shape; substituting empty object", "tool", call.Name)
	}

	return &ToolInvocation{
		ToolName:   call.Name,
		Parameters: parameters,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func parseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	var object map[string]any
	if err := json.Unmarshal([]byte(trimmed), &object); err != nil {
		return nil, false
	}
	if object == nil {
		return nil, false
	}
	return object, true
}

func toolCallFromObject(parsed map[string]any, key string) *ToolCall {
	call, ok := parsed[key].(map[string]any)
	if !ok {
		return nil
	}
	name, _ := call["name"].(string)
	return &ToolCall{Name: name, Arguments: call["arguments"]}
}
