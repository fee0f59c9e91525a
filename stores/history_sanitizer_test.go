package stores

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func TestSanitizeHistory_EmptyHistory(t *testing.T) {
	msgs := []Message{}
	result := SanitizeHistory(msgs)
	if len(result) != 0 {
		t.Errorf("Expected empty result, got %d messages", len(result))
	}
}

func TestSanitizeHistory_ValidHistory(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 4 {
		t.Errorf("Expected 4 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_TruncatedLeadingAnswer(t *testing.T) {
	// Limit cut the question off the oldest exchange
	msgs := []Message{
		{Role: "assistant", Content: "a0"}, // orphaned - should be skipped
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result))
	}
	if result[0].Content != "q1" {
		t.Errorf("Expected history to start at q1, got %s", result[0].Content)
	}
}

func TestSanitizeHistory_UnansweredQuestionAtEnd(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"}, // no answer saved
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(result))
	}
	if result[len(result)-1].Role != "assistant" {
		t.Errorf("Expected last message to be assistant, got %s", result[len(result)-1].Role)
	}
}

func TestSanitizeHistory_UnknownRole(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "q1"},
		{Role: "model", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 || result[0].Content != "q2" {
		t.Errorf("Expected only the q2 exchange, got %+v", result)
	}
}

func TestFormatHistory(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "What is MCP?"},
		{Role: "assistant", Content: "A protocol."},
	}
	want := "User: What is MCP?\nAssistant: A protocol."
	if got := FormatHistory(msgs); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatHistory(nil); got != "" {
		t.Errorf("expected empty history, got %q", got)
	}
}

func TestDetectCorruptedHistory_Clean(t *testing.T) {
	msgs := []Message{
		{Role: "user"},
		{Role: "assistant"},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) != 0 {
		t.Errorf("Expected no issues for clean history, got: %v", issues)
	}
}

func TestDetectCorruptedHistory_OrphanedStart(t *testing.T) {
	msgs := []Message{
		{Role: "assistant"},
		{Role: "user"},
		{Role: "assistant"},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) == 0 {
		t.Error("Expected issues for assistant message at start")
	}
}

func TestDetectCorruptedHistory_ConsecutiveUsers(t *testing.T) {
	msgs := []Message{
		{Role: "user"},
		{Role: "user"},
		{Role: "assistant"},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) != 1 {
		t.Errorf("Expected one issue, got: %v", issues)
	}
}

func TestSanitizeHistory_LogsDetectedIssues(t *testing.T) {
	hook := logrustest.NewGlobal()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})

	SanitizeHistory([]Message{
		{Role: "assistant", Content: "a0"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("Expected a debug entry for dropped messages")
	}
	issues, ok := entry.Data["issues"].([]string)
	if !ok || len(issues) != 1 {
		t.Errorf("Expected one reported issue, got %v", entry.Data["issues"])
	}

	hook.Reset()
	SanitizeHistory([]Message{{Role: "user"}, {Role: "assistant"}})
	if len(hook.AllEntries()) != 0 {
		t.Error("Expected no log entry for clean history")
	}
}
