package normalize

import (
	"errors"
	"testing"
)

func TestStandardizeErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		failure    any
		wantCode   string
		wantStatus int
	}{
		{name: "rate limit", failure: errors.New("Rate limit exceeded, retry later"), wantCode: ErrorCodeRateLimitExceeded, wantStatus: 429},
		{name: "too many requests", failure: "upstream said too many requests", wantCode: ErrorCodeRateLimitExceeded, wantStatus: 429},
		{name: "not found", failure: errors.New("model not found"), wantCode: ErrorCodeNotFound, wantStatus: 404},
		{name: "unauthorized", failure: errors.New("invalid api key provided"), wantCode: ErrorCodeUnauthorized, wantStatus: 401},
		{name: "forbidden", failure: "access forbidden for this org", wantCode: ErrorCodeForbidden, wantStatus: 403},
		{name: "validation", failure: errors.New("request validation failed: messages required"), wantCode: ErrorCodeValidation, wantStatus: 400},
		{name: "fallback internal", failure: errors.New("connection reset by peer"), wantCode: ErrorCodeInternal, wantStatus: 500},
		{name: "object with message field", failure: map[string]any{"message": "404 page not found"}, wantCode: ErrorCodeNotFound, wantStatus: 404},
		{name: "nil failure", failure: nil, wantCode: ErrorCodeInternal, wantStatus: 500},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			envelope := StandardizeError(tt.failure, "chat")
			if envelope == nil {
				t.Fatal("StandardizeError() returned nil")
			}
			if !envelope.IsError {
				t.Fatal("error flag not set")
			}
			if envelope.StatusCode != tt.wantStatus {
				t.Fatalf("status=%d, want %d", envelope.StatusCode, tt.wantStatus)
			}
			if code, _ := envelope.Details["code"].(string); code != tt.wantCode {
				t.Fatalf("code=%q, want %q", code, tt.wantCode)
			}
			if service, _ := envelope.Details["service"].(string); service != "chat" {
				t.Fatalf("service=%q, want %q", service, "chat")
			}
			if envelope.Timestamp == "" {
				t.Fatal("timestamp is empty")
			}
		})
	}
}

// Rate-limit wording must win over other keywords that appear in the same
// message, since classification is first-match by priority.
func TestStandardizeErrorPriorityOrder(t *testing.T) {
	t.Parallel()

	envelope := StandardizeError("rate limit hit while request validation ran", "")
	if envelope.StatusCode != 429 {
		t.Fatalf("status=%d, want 429", envelope.StatusCode)
	}
	if _, ok := envelope.Details["service"]; ok {
		t.Fatal("service detail set for empty service name")
	}
}
