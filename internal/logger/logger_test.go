package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/samvad-hq/data-api-gateway/internal/config"
)

func TestInitWritesJSONWithLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := initWithWriter(&config.Config{AppName: "data-api", LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	log.InfoObj("dropped", "k", 1)
	log.WarnObj("kept", "tool_meta", map[string]any{"tool": "fetch_prices"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "kept" || entry["app"] != "data-api" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts field: %#v", entry)
	}
	meta, ok := entry["tool_meta"].(map[string]any)
	if !ok || meta["tool"] != "fetch_prices" {
		t.Fatalf("unexpected tool_meta: %#v", entry["tool_meta"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("bogus").String(); got != "info" {
		t.Fatalf("level = %s", got)
	}
}
