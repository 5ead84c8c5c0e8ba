package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// SetupがJSON形式でログを出力することを検証
func TestSetup_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, false)

	log.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

// デフォルトレベルではDebugログが抑制されることを検証
func TestSetup_DebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, false)

	log.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug log should be suppressed when debug is disabled")
	}
}

// debug有効時にDebugログが出力されることを検証
func TestSetup_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, true)

	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug log should be emitted when debug is enabled")
	}
}
