package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWithService(t *testing.T) {
	entry := NewLoggerWithService("courserag", "debug")
	var buf bytes.Buffer
	entry.Logger.SetOutput(&buf)

	entry.WithField("k", "v").Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if line["service"] != "courserag" || line["k"] != "v" || line["msg"] != "hello" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != WarnLevel {
		t.Error("expected warn level")
	}
	if ParseLevel("nonsense") != InfoLevel {
		t.Error("expected info fallback")
	}
	if ParseLevel(" DEBUG ") != DebugLevel {
		t.Error("expected debug level")
	}
}
