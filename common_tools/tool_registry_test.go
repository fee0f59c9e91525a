package common_tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Desarso/courserag/models"
)

type stubTool struct {
	name   string
	output string
	err    error
}

func (s *stubTool) Definition() models.FunctionDeclaration {
	return models.FunctionDeclaration{Name: s.name, Description: s.output}
}

func (s *stubTool) Execute(context.Context, map[string]interface{}) (string, error) {
	return s.output, s.err
}

func TestToolManagerDefinitionsInRegistrationOrder(t *testing.T) {
	tm := NewToolManager(&stubTool{name: "b"}, &stubTool{name: "a"})
	defs := tm.GetToolDefinitions()
	if len(defs) != 2 || defs[0].Name != "b" || defs[1].Name != "a" {
		t.Fatalf("unexpected order: %+v", defs)
	}
}

func TestToolManagerLastRegistrationWins(t *testing.T) {
	tm := NewToolManager(&stubTool{name: "a", output: "old"}, &stubTool{name: "b"})
	if err := tm.Register(&stubTool{name: "a", output: "new"}); err != nil {
		t.Fatal(err)
	}
	defs := tm.GetToolDefinitions()
	if len(defs) != 2 || defs[0].Name != "a" || defs[0].Description != "new" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	out, err := tm.ExecuteTool(context.Background(), "a", nil)
	if err != nil || out != "new" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestToolManagerRejectsUnnamedTool(t *testing.T) {
	if err := NewToolManager().Register(&stubTool{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewToolManagerPanicsOnUnnamedTool(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unnamed tool")
		}
	}()
	NewToolManager(&stubTool{name: "a"}, &stubTool{})
}

func TestToolManagerUnknownTool(t *testing.T) {
	tm := NewToolManager(NewCourseSearchTool(&fakeVectorStore{}, nil))
	out, err := tm.ExecuteTool(context.Background(), "no_such_tool", map[string]interface{}{"query": "x"})
	if err != nil {
		t.Fatalf("unknown tool must not error, got %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Errorf("expected not found message, got %q", out)
	}
	calls := tm.Calls()
	if len(calls) != 1 || calls[0].Status != CallStatusNotFound {
		t.Errorf("unexpected calls %+v", calls)
	}
}

func TestToolManagerPropagatesToolError(t *testing.T) {
	boom := errors.New("store unavailable")
	tm := NewToolManager(&stubTool{name: "broken", err: boom})
	if _, err := tm.ExecuteTool(context.Background(), "broken", nil); !errors.Is(err, boom) {
		t.Fatalf("expected tool error, got %v", err)
	}
	calls := tm.Calls()
	if len(calls) != 1 || calls[0].Status != CallStatusError || calls[0].Error != "store unavailable" {
		t.Errorf("unexpected calls %+v", calls)
	}
}

func TestToolManagerDelegatesToSearchTool(t *testing.T) {
	store := &fakeVectorStore{results: twoLessonResults()}
	tm := NewToolManager(NewCourseSearchTool(store, nil))

	out, err := tm.ExecuteTool(context.Background(), SearchToolName, map[string]interface{}{"query": "RAG"})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.calls) != 1 || !strings.Contains(out, "[Intro to AI") {
		t.Errorf("search not delegated: %q", out)
	}
	if got := tm.Calls(); len(got) != 1 || got[0].ArgumentsJSON() != `{"query":"RAG"}` {
		t.Errorf("unexpected calls %+v", got)
	}
}

func TestToolManagerSources(t *testing.T) {
	tm := NewToolManager(&stubTool{name: "plain"}, NewCourseSearchTool(&fakeVectorStore{results: twoLessonResults()}, nil))

	if got := tm.GetLastSources(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil sources, got %#v", got)
	}
	if _, err := tm.ExecuteTool(context.Background(), SearchToolName, map[string]interface{}{"query": "RAG"}); err != nil {
		t.Fatal(err)
	}
	if got := tm.GetLastSources(); len(got) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got))
	}

	tm.ResetSources()
	if got := tm.GetLastSources(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty sources after reset, got %#v", got)
	}
}
