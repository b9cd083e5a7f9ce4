package mcpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hylla/loggbok/internal/adapters/server/common"
	"github.com/hylla/loggbok/internal/app"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
)

func newTestAdapter(t *testing.T, now time.Time) common.Service {
	t.Helper()
	logger := charmLog.New(io.Discard)
	clock := func() time.Time { return now }
	store, err := logstore.Open(t.TempDir(), "", logger, logstore.WithClock(clock))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return common.NewAdapter(app.NewService(store, merge.New(store, logger), clock, logger))
}

// jsonRPCResponse models the minimal JSON-RPC response fields used here.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "loggbok-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolRequest constructs one tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// toolResultText decodes the first text entry from one tool-call result.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// callToolResultText decodes the first textual content block.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestAdapter(t, time.Now()))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

func TestHandlerRegistersTools(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestAdapter(t, time.Now()))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools missing in result: %#v", toolsResp.Result)
	}
	var names []string
	for _, raw := range toolsRaw {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := tool["name"].(string); ok {
			names = append(names, name)
		}
	}
	for _, want := range []string{
		"loggbok.record_event",
		"loggbok.list_events",
		"loggbok.open_tasks",
		"loggbok.active_goals",
		"loggbok.weekly_summary",
		"loggbok.create_task",
		"loggbok.complete_task",
		"loggbok.abandon_task",
		"loggbok.set_goal",
		"loggbok.log_goal_progress",
		"loggbok.complete_goal",
		"loggbok.merge_external",
		"loggbok.sync_watermark",
	} {
		if !slices.Contains(names, want) {
			t.Fatalf("tool %q not registered; got %v", want, names)
		}
	}
}

func TestCreateTaskToolCall(t *testing.T) {
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	handler, err := NewHandler(Config{}, newTestAdapter(t, now))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, callResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(2, "loggbok.create_task", map[string]any{
			"title": "write report",
			"area":  "work",
		}))

	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, "t-20260112-001") {
		t.Fatalf("expected generated task id in result, got %s", text)
	}

	_, listResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(3, "loggbok.open_tasks", nil))
	if text := toolResultText(t, listResp.Result); !strings.Contains(text, "write report") {
		t.Fatalf("expected created task in open tasks, got %s", text)
	}
}

func TestToolCallErrorReporting(t *testing.T) {
	handler, err := NewHandler(Config{}, newTestAdapter(t, time.Now()))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, callResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(2, "loggbok.complete_task", map[string]any{
			"task_id": "t-20260101-099",
		}))

	if isError, _ := callResp.Result["isError"].(bool); !isError {
		t.Fatalf("expected tool error result, got %#v", callResp.Result)
	}
	if text := toolResultText(t, callResp.Result); !strings.Contains(text, "not_found") {
		t.Fatalf("expected not_found mapping, got %s", text)
	}
}

func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestNormalizeConfig(t *testing.T) {
	cfg := normalizeConfig(Config{})
	if cfg.ServerName != "loggbok" || cfg.ServerVersion != "dev" || cfg.EndpointPath != "/mcp" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	cfg = normalizeConfig(Config{ServerName: " x ", ServerVersion: " 1.2 ", EndpointPath: " /tools "})
	if cfg.ServerName != "x" || cfg.ServerVersion != "1.2" || cfg.EndpointPath != "/tools" {
		t.Fatalf("unexpected normalization %+v", cfg)
	}
}

func TestHandlerServeHTTPUnavailable(t *testing.T) {
	var handler *Handler
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestToolResultFromErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: kind is required", common.ErrInvalidRequest), "invalid_request"},
		{fmt.Errorf("%w: task t-1", app.ErrNotFound), "not_found"},
		{errors.New("disk on fire"), "internal_error"},
	}
	for _, tc := range cases {
		text := callToolResultText(t, toolResultFromError(tc.err))
		if !strings.HasPrefix(text, tc.want) {
			t.Fatalf("error %v mapped to %q, want prefix %q", tc.err, text, tc.want)
		}
	}
}
