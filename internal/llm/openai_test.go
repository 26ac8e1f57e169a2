package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient_Backends(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		cfg         Config
		wantBackend string
		wantModel   string
		wantErr     error
	}{
		{
			name:        "default backend is openai",
			cfg:         Config{APIKey: "sk-test"},
			wantBackend: "openai",
			wantModel:   "gpt-4o-mini",
		},
		{
			name:        "groq with explicit model",
			cfg:         Config{Backend: "groq", Model: "llama-3.1-8b-instant", APIKey: "gsk-test"},
			wantBackend: "groq",
			wantModel:   "llama-3.1-8b-instant",
		},
		{
			name:    "missing key",
			cfg:     Config{Backend: "openai"},
			wantErr: ErrNotConfigured,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "bedrock", APIKey: "k"},
			wantErr: ErrUnsupportedBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewClient() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if client.Backend() != tt.wantBackend {
				t.Errorf("Backend() = %q, want %q", client.Backend(), tt.wantBackend)
			}
			if client.Model() != tt.wantModel {
				t.Errorf("Model() = %q, want %q", client.Model(), tt.wantModel)
			}
		})
	}
}

func TestChatWithTools_ToolCallResponse(t *testing.T) {
	t.Parallel()
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "search_tasks", "arguments": "{\"query\":\"standup\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Backend: "groq", APIKey: "gsk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	tools := []ToolDef{{
		Name:        "search_tasks",
		Description: "Search tasks by text.",
		Parameters:  map[string]any{"type": "object"},
	}}
	messages := []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "find the standup task"},
	}

	result, err := client.ChatWithTools(context.Background(), messages, tools)
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %+v, want one", result.ToolCalls)
	}
	tc := result.ToolCalls[0]
	if tc.ID != "call_abc" || tc.Name != "search_tasks" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Arguments != `{"query":"standup"}` {
		t.Errorf("Arguments = %q", tc.Arguments)
	}

	if gotAuth != "Bearer gsk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.ToolChoice != "auto" {
		t.Errorf("tool_choice = %q, want auto", gotReq.ToolChoice)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].Type != "function" || gotReq.Tools[0].Function.Name != "search_tasks" {
		t.Errorf("tools = %+v", gotReq.Tools)
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("messages = %+v, want two", gotReq.Messages)
	}
}

func TestChatWithTools_ToolResultRoundTrip(t *testing.T) {
	t.Parallel()
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Found it."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	messages := []Message{
		{Role: "user", Content: "find the standup task"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_abc", Name: "search_tasks", Arguments: `{"query":"standup"}`}}},
		{Role: "tool", Content: "1 task found: ...", ToolCallID: "call_abc", Name: "search_tasks"},
	}

	result, err := client.ChatWithTools(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}
	if result.Content != "Found it." {
		t.Errorf("Content = %q", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %+v, want none", result.ToolCalls)
	}

	if len(gotReq.Tools) != 0 || gotReq.ToolChoice != "" {
		t.Errorf("tools should be omitted without definitions, got %+v choice %q", gotReq.Tools, gotReq.ToolChoice)
	}
	if len(gotReq.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(gotReq.Messages))
	}
	assistant := gotReq.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Type != "function" {
		t.Errorf("assistant tool_calls = %+v", assistant.ToolCalls)
	}
	toolMsg := gotReq.Messages[2]
	if toolMsg.ToolCallID != "call_abc" || toolMsg.Name != "search_tasks" {
		t.Errorf("tool message = %+v", toolMsg)
	}
}

func TestChatWithTools_ErrorEnvelope(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "sk-bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.ChatWithTools(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("ChatWithTools() expected error for provider error envelope")
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("error = %v, want provider message included", err)
	}
}

func TestChatWithTools_NoChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.ChatWithTools(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("ChatWithTools() error = %v, want no-choices error", err)
	}
}
