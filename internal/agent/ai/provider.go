package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrModelUnavailable is returned once retries against the model service
// are exhausted. Handlers map it to 503.
var ErrModelUnavailable = errors.New("model service unavailable")

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of one tool execution, fed back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolDefinition describes a tool available to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Message is one transcript entry in provider-neutral form. ToolCalls is
// set on assistant messages, ToolResults on tool messages.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ChatRequest represents a request to the model provider.
type ChatRequest struct {
	System    string           `json:"system,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
	Model     string           `json:"model,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

// Completion is the model's full response to one request. ToolCalls is
// empty when the model answered with text only.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Provider is a chat-completion backend.
type Provider interface {
	// ID returns the provider identifier ("openai", "anthropic").
	ID() string

	// Complete sends one request and waits for the full response.
	Complete(ctx context.Context, req *ChatRequest) (*Completion, error)
}

// ProviderError represents an error reported by a provider API.
type ProviderError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

func (e *ProviderError) Error() string {
	return e.Message
}

// IsRetryable reports whether an error is worth retrying: rate limits,
// timeouts, and transient server-side failures. Auth and request-shape
// errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "rate_limit_exceeded", "overloaded_error":
			return true
		case "authentication_error", "invalid_api_key", "insufficient_quota":
			return false
		}
		switch pe.Type {
		case "rate_limit_error", "overloaded_error", "api_error":
			return true
		case "authentication_error", "invalid_request_error":
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	patterns := []string{
		"rate limit", "rate_limit", "too many requests", "429",
		"timeout", "timed out", "deadline exceeded",
		"overloaded", "503", "502", "500", "connection reset",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
