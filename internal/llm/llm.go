// Package llm provides clients for external model providers that support
// function calling. The chat transport advertises the tool catalog through
// these clients and feeds tool results back for a final answer.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no provider API key is available.
var ErrNotConfigured = errors.New("llm: provider not configured")

// ErrUnsupportedBackend is returned when an unknown backend is specified.
var ErrUnsupportedBackend = errors.New("llm: unsupported backend")

// Message is one turn of a conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a provider instruction to invoke one named tool. Arguments is
// the raw JSON object as returned by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef advertises one callable tool to the provider.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatResult is the provider's reply: either final text, tool-call
// instructions, or both.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Client defines the provider interface used by the chat transport.
type Client interface {
	// ChatWithTools runs one chat completion with the tools advertised.
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDef) (ChatResult, error)

	// Model returns the model identifier being used.
	Model() string

	// Backend returns the backend type (e.g., "openai", "groq").
	Backend() string
}

// Config holds provider configuration.
type Config struct {
	// Backend is the provider: "openai" or "groq".
	Backend string

	// Model is the model identifier, e.g. "gpt-4o-mini".
	Model string

	// BaseURL overrides the provider endpoint (used in tests).
	BaseURL string

	// APIKey authenticates against the provider.
	APIKey string
}

// NewClient creates a provider client based on the configuration.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch cfg.Backend {
	case "", "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return newCompatClient("openai", baseURL, cfg.APIKey, model), nil

	case "groq":
		// Groq speaks the OpenAI chat-completions wire format.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "llama-3.3-70b-versatile"
		}
		return newCompatClient("groq", baseURL, cfg.APIKey, model), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Backend)
	}
}
