package normalize

import (
	"fmt"
	"strings"
)

// Error codes for classified upstream and gateway failures.
const (
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeForbidden         = "FORBIDDEN"
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// StandardizeError converts an arbitrary failure value (error, string, or a
// decoded JSON object with a message field) into a canonical error envelope.
// The message is classified by keyword into an error code and HTTP status;
// checks run in priority order and the first matching keyword wins.
func StandardizeError(failure any, serviceName string) *ErrorEnvelope {
	message := errorMessage(failure)
	code, status := classifyErrorMessage(message)

	details := map[string]any{"code": code}
	if strings.TrimSpace(serviceName) != "" {
		details["service"] = strings.TrimSpace(serviceName)
	}
	return NewErrorEnvelope(message, status, details)
}

func errorMessage(failure any) string {
	switch typed := failure.(type) {
	case nil:
		return "unknown error"
	case error:
		return typed.Error()
	case string:
		if strings.TrimSpace(typed) == "" {
			return "unknown error"
		}
		return typed
	case map[string]any:
		if message := stringField(typed, "message"); message != "" {
			return message
		}
		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func classifyErrorMessage(message string) (string, int) {
	msg := strings.ToLower(message)

	if isRateLimitString(msg) {
		return ErrorCodeRateLimitExceeded, 429
	}
	if isNotFoundString(msg) {
		return ErrorCodeNotFound, 404
	}
	if isUnauthorizedString(msg) {
		return ErrorCodeUnauthorized, 401
	}
	if isForbiddenString(msg) {
		return ErrorCodeForbidden, 403
	}
	if isValidationString(msg) {
		return ErrorCodeValidation, 400
	}
	return ErrorCodeInternal, 500
}

func isRateLimitString(msg string) bool {
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "429")
}

func isNotFoundString(msg string) bool {
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "no such model") ||
		strings.Contains(msg, "404")
}

func isUnauthorizedString(msg string) bool {
	return strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "401")
}

func isForbiddenString(msg string) bool {
	return strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "403")
}

func isValidationString(msg string) bool {
	return strings.Contains(msg, "validation") ||
		strings.Contains(msg, "invalid request") ||
		strings.Contains(msg, "bad request") ||
		strings.Contains(msg, "400")
}
