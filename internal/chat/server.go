// Package chat exposes the dispatch bridge over HTTP for externally hosted
// model providers that return function-call instructions.
package chat

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/xiy/taskbridge/internal/bridge"
	"github.com/xiy/taskbridge/internal/catalog"
	"github.com/xiy/taskbridge/internal/format"
	"github.com/xiy/taskbridge/internal/llm"
	"github.com/xiy/taskbridge/internal/mcp"
	"github.com/xiy/taskbridge/internal/store"
)

const systemPrompt = "You are a task-management assistant. Use the provided " +
	"tools to answer questions about users and tasks in the database. Tools " +
	"are read-only; never claim to have modified anything."

// Pinger reports database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the stateless HTTP function-calling transport.
type Server struct {
	bridge *bridge.Bridge
	client llm.Client
	pinger Pinger
	sink   mcp.RequestLogSink
	logger *log.Logger
}

// NewServer creates the chat transport on top of the dispatch bridge.
func NewServer(b *bridge.Bridge, client llm.Client, pinger Pinger, sink mcp.RequestLogSink, logger *log.Logger) *Server {
	return &Server{bridge: b, client: client, pinger: pinger, sink: sink, logger: logger}
}

// Handler returns the route mux; split out so tests can drive it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/functions", s.handleFunctions)
	return mux
}

// Serve blocks while handling HTTP. Cancel ctx to initiate graceful
// shutdown; in-flight requests are allowed to drain.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message      string     `json:"message"`
	Conversation []chatTurn `json:"conversation,omitempty"`
}

type functionCall struct {
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments"`
}

type chatResponse struct {
	Response      string         `json:"response"`
	FunctionCalls []functionCall `json:"functionCalls"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	messages := make([]llm.Message, 0, len(req.Conversation)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, turn := range req.Conversation {
		if turn.Role != "user" && turn.Role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	tools := toolDefs()

	result, err := s.client.ChatWithTools(r.Context(), messages, tools)
	if err != nil {
		logger.Error("provider request failed", "error", err)
		writeError(w, http.StatusBadGateway, "model provider is currently unavailable")
		return
	}

	calls := []functionCall{}
	if len(result.ToolCalls) > 0 {
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		for _, tc := range result.ToolCalls {
			args := map[string]any{}
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					logger.Warn("unparseable tool arguments", "tool", tc.Name, "error", err)
				}
			}
			calls = append(calls, functionCall{Function: tc.Name, Arguments: args})

			text := s.invokeTool(r.Context(), logger, tc.Name, args)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    text,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}

		result, err = s.client.ChatWithTools(r.Context(), messages, tools)
		if err != nil {
			logger.Error("provider follow-up failed", "error", err)
			writeError(w, http.StatusBadGateway, "model provider is currently unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:      result.Content,
		FunctionCalls: calls,
	})
}

// invokeTool runs one bridge invocation and renders the outcome as text for
// the model. Dispatch failures surface as tool-result text so the model can
// respond gracefully; they are not HTTP errors.
func (s *Server) invokeTool(ctx context.Context, logger *log.Logger, name string, args map[string]any) string {
	started := time.Now()
	res, derr := s.bridge.Invoke(ctx, name, args)

	text := ""
	errText := ""
	if derr != nil {
		text = "Tool error: " + derr.UserMessage()
		errText = derr.UserMessage()
	} else {
		text = format.Digest(res)
	}

	if s.sink != nil {
		rec := store.RequestLog{
			Transport:  "http",
			Method:     "chat",
			ToolName:   name,
			Success:    derr == nil,
			ErrorText:  errText,
			DurationMS: time.Since(started).Milliseconds(),
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.sink.InsertRequestLog(ctx, rec); err != nil {
			logger.Warn("failed to persist request log", "error", err)
		}
	}

	return text
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	connected := false
	if s.pinger != nil {
		connected = s.pinger.Ping(r.Context()) == nil
	}
	status := "healthy"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"database":  connected,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type functionDump struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
	descriptors := catalog.All()
	functions := make([]functionDump, 0, len(descriptors))
	for _, d := range descriptors {
		functions = append(functions, functionDump{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"functions": functions,
		"count":     len(functions),
	})
}

// toolDefs renders the shared catalog as provider function definitions.
func toolDefs() []llm.ToolDef {
	descriptors := catalog.All()
	defs := make([]llm.ToolDef, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, llm.ToolDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema(),
		})
	}
	return defs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
