package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/data-api-gateway/internal/config"
	"github.com/samvad-hq/data-api-gateway/internal/gateway"
	"github.com/samvad-hq/data-api-gateway/internal/logger"
	"github.com/samvad-hq/data-api-gateway/pkg/notifiers"
)

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:                "data-api",
		DataBase:               base,
		DataToken:              "tok",
		Transport:              config.TransportHTTP,
		ListenAddr:             "127.0.0.1:0",
		JournalType:            "bbolt",
		JournalPath:            filepath.Join(dir, "journal.db"),
		JournalTTL:             time.Hour,
		JournalCleanupInterval: time.Hour,
		NotifiersFile:          filepath.Join(dir, "notifiers.yaml"),
	}
}

func TestGatewayJournalsAndNotifiesInvocations(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`{"orderId":"ORD9","status":"PLACED"}`))
	}))
	defer upstreamSrv.Close()

	var (
		mu     sync.Mutex
		events []notifiers.Event
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt notifiers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	}))
	defer hook.Close()

	cfg := testConfig(t, upstreamSrv.URL)
	notifiersYAML := "notifiers:\n  - id: orders\n    type: http\n    tools: [place_order, cancel_order]\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(cfg.NotifiersFile, []byte(notifiersYAML), 0o644); err != nil {
		t.Fatalf("write notifiers file: %v", err)
	}

	gw, err := NewGateway(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer gw.Close()

	ctx := context.Background()
	if _, err := gw.Registry().Invoke(ctx, gateway.ToolFetchHoldings, nil); err != nil {
		t.Fatalf("fetch_holdings: %v", err)
	}
	out, err := gw.Registry().Invoke(ctx, gateway.ToolPlaceOrder, gateway.Args{
		"symbol": "INFY", "exchange": "NSE", "order_type": "LIMIT", "transaction_type": "BUY",
		"quantity": 10, "price": 1500.5, "product_type": "CNC",
	})
	if err != nil {
		t.Fatalf("place_order: %v", err)
	}
	if string(out) != `{"orderId":"ORD9","status":"PLACED"}` {
		t.Fatalf("unexpected result %s", out)
	}

	entries, err := gw.store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].Tool != gateway.ToolPlaceOrder || entries[1].Tool != gateway.ToolFetchHoldings {
		t.Fatalf("unexpected journal entries: %#v", entries)
	}

	gw.notify.wait()
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected only place_order to be notified, got %d events", len(events))
	}
	if events[0].Tool != gateway.ToolPlaceOrder || !events[0].OK || string(events[0].Result) != string(out) {
		t.Fatalf("unexpected event: %#v", events[0])
	}
}

func TestSlowNotifierDoesNotDelayToolResult(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"ORD1"}`))
	}))
	defer upstreamSrv.Close()

	release := make(chan struct{})
	hook := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer hook.Close()

	cfg := testConfig(t, upstreamSrv.URL)
	cfg.JournalType = "none"
	notifiersYAML := "notifiers:\n  - id: slow\n    type: http\n    http:\n      url: " + hook.URL + "\n      timeout_seconds: 10\n"
	if err := os.WriteFile(cfg.NotifiersFile, []byte(notifiersYAML), 0o644); err != nil {
		t.Fatalf("write notifiers file: %v", err)
	}

	gw, err := NewGateway(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer func() {
		close(release)
		gw.Close()
	}()

	start := time.Now()
	out, err := gw.Registry().Invoke(context.Background(), gateway.ToolCancelOrder, gateway.Args{"order_id": "ORD1"})
	if err != nil {
		t.Fatalf("cancel_order: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("tool result waited on notifier: %s", elapsed)
	}
	if string(out) != `{"orderId":"ORD1"}` {
		t.Fatalf("unexpected result %s", out)
	}
}

func TestNotifyDispatcherBoundsDelivery(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer hook.Close()

	n, err := notifiers.DefaultRegistry().NotifierFor(context.Background(), notifiers.NotifierConfig{
		ID:   "hung",
		Type: notifiers.TypeHTTP,
		HTTP: &notifiers.HTTPNotifierConfig{Method: http.MethodPost, URL: hook.URL, TimeoutSeconds: 30},
	}, nil)
	if err != nil {
		t.Fatalf("NotifierFor: %v", err)
	}
	d := newNotifyDispatcher(notifiers.NewFanout([]notifiers.Notifier{n}), logger.NopLogger{})
	d.timeout = 50 * time.Millisecond

	d.observer().Observe(context.Background(), gateway.Invocation{Tool: gateway.ToolFetchHoldings})

	done := make(chan struct{})
	go func() {
		d.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("delivery was not bounded by the notify timeout")
	}
}

func TestGatewayWithoutNotifiersFileOrJournal(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusBadGateway)
	}))
	defer upstreamSrv.Close()

	cfg := testConfig(t, upstreamSrv.URL)
	cfg.JournalType = "none"

	gw, err := NewGateway(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer gw.Close()

	if gw.fanout.Size() != 0 {
		t.Fatalf("expected no notifiers")
	}
	if entries, err := gw.store.Recent(0); err != nil || len(entries) != 0 {
		t.Fatalf("expected noop journal, got %v %v", entries, err)
	}
	if _, err := gw.Registry().Invoke(context.Background(), gateway.ToolFetchIndicators, nil); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestGatewayRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.JournalType = "none"

	gw, err := NewGateway(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewGatewayRejectsNilConfig(t *testing.T) {
	if _, err := NewGateway(context.Background(), nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
