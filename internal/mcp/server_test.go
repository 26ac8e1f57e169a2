package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/xiy/taskbridge/internal/bridge"
	"github.com/xiy/taskbridge/internal/store"
	"github.com/xiy/taskbridge/pkg/types"
)

type fakeStore struct{}

func (fakeStore) AccountByID(_ context.Context, id string) (types.Account, error) {
	return types.Account{ID: id, Username: "alice"}, nil
}
func (fakeStore) AccountByUsername(_ context.Context, _ string) (types.Account, error) {
	return types.Account{}, store.ErrNotFound
}
func (fakeStore) ListAccounts(_ context.Context, _ int) ([]types.Account, error) { return nil, nil }
func (fakeStore) WorkItemByID(_ context.Context, _ string) (types.WorkItem, error) {
	return types.WorkItem{}, store.ErrNotFound
}
func (fakeStore) ListWorkItems(_ context.Context, _ int) ([]types.WorkItem, error) {
	return []types.WorkItem{{ID: "64f1a2b3c4d5e6f708192b01", Title: "Plan sprint", Status: types.StatusPending, Priority: types.PriorityHigh}}, nil
}
func (fakeStore) WorkItemsForAccount(_ context.Context, _ string, _ int) ([]types.WorkItem, error) {
	return nil, nil
}
func (fakeStore) WorkItemsByStatus(_ context.Context, _ types.Status, _ int) ([]types.WorkItem, error) {
	return nil, nil
}
func (fakeStore) WorkItemsByPriority(_ context.Context, _ types.Priority, _ int) ([]types.WorkItem, error) {
	return nil, nil
}
func (fakeStore) SearchWorkItems(_ context.Context, _ string, _ int) ([]types.WorkItem, error) {
	return nil, nil
}
func (fakeStore) DatabaseStats(_ context.Context) (types.DatabaseStats, error) {
	return types.DatabaseStats{}, nil
}
func (fakeStore) AccountStats(_ context.Context, _ string) (types.AccountStats, error) {
	return types.AccountStats{}, nil
}
func (fakeStore) InsertRequestLog(_ context.Context, _ store.RequestLog) error { return nil }
func (fakeStore) RecentRequestLogs(_ context.Context, _ int) ([]store.RequestLog, error) {
	return nil, nil
}
func (fakeStore) Ping(_ context.Context) error  { return nil }
func (fakeStore) Close(_ context.Context) error { return nil }

type captureSink struct {
	rows []store.RequestLog
}

func (c *captureSink) InsertRequestLog(_ context.Context, rec store.RequestLog) error {
	c.rows = append(c.rows, rec)
	return nil
}

func newTestServer(sink RequestLogSink) *Server {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	b := bridge.New(fakeStore{}, logger, 100)
	return NewServer(b, logger, sink, "taskbridge-test")
}

func TestHandle_ToolsList(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)

	resp, ok := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/list",
	})
	if !ok {
		t.Fatal("expected response")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	tools, ok := result["tools"].([]ToolDefinition)
	if !ok || len(tools) != 11 {
		t.Fatalf("expected 11 tools, got %v", result["tools"])
	}
}

func TestHandle_ToolCallSuccess(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)

	params, _ := json.Marshal(map[string]any{
		"name":      "list_tasks",
		"arguments": map[string]any{},
	})
	resp, ok := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`7`),
		Method:  "tools/call",
		Params:  params,
	})
	if !ok {
		t.Fatal("expected response")
	}
	result := resp.Result.(map[string]any)
	if isError, _ := result["isError"].(bool); isError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	content := result["content"].([]map[string]any)
	text, _ := content[0]["text"].(string)
	if text == "" {
		t.Fatal("expected non-empty digest text")
	}
}

func TestHandle_ToolCallNotFoundRendersAsNormalOutput(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)

	params, _ := json.Marshal(map[string]any{
		"name":      "get_task_by_id",
		"arguments": map[string]any{"task_id": "64f1a2b3c4d5e6f708192bff"},
	})
	resp, _ := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`8`),
		Method:  "tools/call",
		Params:  params,
	})
	result := resp.Result.(map[string]any)
	if isError, _ := result["isError"].(bool); isError {
		t.Fatal("absent record must not be a tool error")
	}
	content := result["content"].([]map[string]any)
	if text, _ := content[0]["text"].(string); text != "No matching task found." {
		t.Fatalf("digest = %q", text)
	}
}

func TestHandle_ToolCallValidationError(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)

	params, _ := json.Marshal(map[string]any{
		"name":      "get_task_by_id",
		"arguments": map[string]any{},
	})
	resp, _ := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "tools/call",
		Params:  params,
	})
	result := resp.Result.(map[string]any)
	if isError, _ := result["isError"].(bool); !isError {
		t.Fatal("expected isError for missing required argument")
	}
}

func TestReadWriteFramedMessage(t *testing.T) {
	t.Parallel()
	resp := response{JSONRPC: "2.0", ID: 1, Result: map[string]any{"ok": true}}
	var payloadBuf bytes.Buffer
	bw := bufio.NewWriter(&payloadBuf)
	if err := writeFramedMessage(bw, resp); err != nil {
		t.Fatalf("writeFramedMessage() error = %v", err)
	}
	br := bufio.NewReader(bytes.NewReader(payloadBuf.Bytes()))
	payload, err := readFramedMessage(br)
	if err != nil {
		t.Fatalf("readFramedMessage() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got["jsonrpc"] != "2.0" {
		t.Fatalf("expected jsonrpc 2.0, got %v", got["jsonrpc"])
	}
}

func TestReadMessage_JSONLine(t *testing.T) {
	t.Parallel()
	raw := []byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n")
	br := bufio.NewReader(bytes.NewReader(raw))

	payload, mode, err := readMessage(br)
	if err != nil {
		t.Fatalf("readMessage() error = %v", err)
	}
	if mode != wireModeJSONLine {
		t.Fatalf("expected JSON-line mode, got %v", mode)
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("json.Unmarshal(payload) error = %v", err)
	}
	if req.Method != "ping" {
		t.Fatalf("expected method ping, got %q", req.Method)
	}
}

func TestServe_JSONLineInitialize(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)

	in := bytes.NewBufferString("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"initialize\",\"params\":{\"protocolVersion\":\"2024-11-05\"}}\n")
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	line := bytes.TrimSpace(out.Bytes())
	if len(line) == 0 {
		t.Fatal("expected JSON-line response, got empty output")
	}
	if bytes.Contains(line, []byte("Content-Length:")) {
		t.Fatalf("expected JSON-line response, got framed output: %q", string(line))
	}

	var resp map[string]any
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("json.Unmarshal(response) error = %v", err)
	}
	if resp["jsonrpc"] != "2.0" {
		t.Fatalf("expected jsonrpc 2.0, got %v", resp["jsonrpc"])
	}
}

func TestServe_LogsRequestEvents(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	srv := newTestServer(sink)

	in := bytes.NewBufferString("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"tools/call\",\"params\":{\"name\":\"get_tasks_by_status\",\"arguments\":{\"status\":\"archived\"}}}\n")
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	if len(sink.rows) != 1 {
		t.Fatalf("expected 1 request log row, got %d", len(sink.rows))
	}
	got := sink.rows[0]
	if got.Method != "tools/call" {
		t.Fatalf("expected method tools/call, got %q", got.Method)
	}
	if got.ToolName != "get_tasks_by_status" {
		t.Fatalf("expected tool get_tasks_by_status, got %q", got.ToolName)
	}
	if got.Success {
		t.Fatal("expected failed request due to invalid status value")
	}
	if got.ErrorText == "" {
		t.Fatal("expected non-empty error text")
	}
}
