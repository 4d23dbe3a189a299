package mcpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samvad-hq/data-api-gateway/internal/config"
	"github.com/samvad-hq/data-api-gateway/internal/gateway"
	"github.com/samvad-hq/data-api-gateway/internal/upstream"
)

func newTestServer(t *testing.T, status int, body string) *Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	svc := gateway.NewService(upstream.NewClient(srv.URL, "", nil))
	reg, err := gateway.NewRegistry(svc.Tools()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return New("data-api", "test", reg, nil)
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.handler(name)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestToolCallReturnsRawUpstreamJSON(t *testing.T) {
	const body = `{"symbol":"TCS","close":[1,2]}`
	s := newTestServer(t, http.StatusOK, body)

	res := callTool(t, s, gateway.ToolFetchPrices, map[string]any{"symbol": "TCS"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != body {
		t.Fatalf("text = %s", got)
	}
}

func TestToolCallSurfacesUpstreamFailureAsErrorResult(t *testing.T) {
	s := newTestServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)

	res := callTool(t, s, gateway.ToolFetchHoldings, nil)
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	if got := resultText(t, res); !strings.Contains(got, "status 503") || !strings.Contains(got, "down") {
		t.Fatalf("error text = %q", got)
	}
}

func TestToolCallReportsMissingArguments(t *testing.T) {
	s := newTestServer(t, http.StatusOK, `{}`)

	res := callTool(t, s, gateway.ToolCancelOrder, map[string]any{})
	if !res.IsError || !strings.Contains(resultText(t, res), "order_id") {
		t.Fatalf("expected missing order_id error, got %#v", res)
	}
}

func TestBuildToolSchema(t *testing.T) {
	svc := gateway.NewService(nil)
	var placeOrder gateway.Tool
	for _, tool := range svc.Tools() {
		if tool.Name == gateway.ToolPlaceOrder {
			placeOrder = tool
		}
	}

	tool := buildTool(placeOrder)
	if tool.Name != gateway.ToolPlaceOrder {
		t.Fatalf("name = %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 7 {
		t.Fatalf("required = %v", tool.InputSchema.Required)
	}
	kinds := map[string]string{
		"quantity": "integer",
		"price":    "number",
		"symbol":   "string",
	}
	for name, want := range kinds {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			t.Fatalf("property %s missing", name)
		}
		if prop["type"] != want {
			t.Fatalf("%s type = %v, want %s", name, prop["type"], want)
		}
	}
}

func TestToolsListAdvertisesEveryTool(t *testing.T) {
	s := newTestServer(t, http.StatusOK, `{}`)

	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{
		gateway.ToolFetchIndicators,
		gateway.ToolFetchPrices,
		gateway.ToolFetchHoldings,
		gateway.ToolPlaceOrder,
		gateway.ToolCancelOrder,
		gateway.ToolFetchEnrichedIndicator,
	} {
		if !strings.Contains(string(raw), `"name":"`+name+`"`) {
			t.Fatalf("tools/list missing %s: %s", name, raw)
		}
	}
}

type countingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *countingLogger) InfoObj(string, string, interface{})  {}
func (l *countingLogger) DebugObj(string, string, interface{}) {}
func (l *countingLogger) ErrorObj(string, string, interface{}) {}
func (l *countingLogger) WarnObj(string, string, interface{}) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func TestFailedToolCallLeavesLoggingToObservers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := gateway.NewService(upstream.NewClient(srv.URL, "", nil))
	reg, err := gateway.NewRegistry(svc.Tools()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	log := &countingLogger{}
	s := New("data-api", "test", reg, log)

	if res := callTool(t, s, gateway.ToolFetchHoldings, nil); !res.IsError {
		t.Fatalf("expected error result")
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.warns != 0 {
		t.Fatalf("handler logged %d warnings for a failed call", log.warns)
	}
}

func TestServeStopsWhenCancelledBeforeListening(t *testing.T) {
	for _, transport := range []string{config.TransportHTTP, config.TransportSSE} {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("reserve port: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := newTestServer(t, http.StatusOK, `{}`)
		if err := s.Serve(ctx, transport, addr); err != nil {
			t.Fatalf("%s Serve: %v", transport, err)
		}

		time.Sleep(100 * time.Millisecond)
		if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
			conn.Close()
			t.Fatalf("%s transport still listening after shutdown", transport)
		}
	}
}
