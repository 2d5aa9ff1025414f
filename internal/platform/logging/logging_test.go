package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ogurasousui/codex-user-admin/internal/platform/config"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&buf, config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "user_id", "1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single record, got %q", buf.String())
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not json: %v", err)
	}
	if record["msg"] != "shown" || record["user_id"] != "1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, config.LogConfig{Level: "trace"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New(&bytes.Buffer{}, config.LogConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
