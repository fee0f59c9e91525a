package common_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Desarso/courserag/models"
)

const (
	CallStatusOK       = "ok"
	CallStatusError    = "error"
	CallStatusNotFound = "not_found"
)

// ToolCall records a single dispatch through a ToolManager.
type ToolCall struct {
	Tool      string
	Arguments map[string]interface{}
	Status    string
	Error     string
	Duration  time.Duration
	StartedAt time.Time
}

// ArgumentsJSON returns the call arguments encoded as JSON, or "{}".
func (c ToolCall) ArgumentsJSON() string {
	if len(c.Arguments) == 0 {
		return "{}"
	}
	data, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ToolManager holds the tools available for one request. It is not safe for
// concurrent use; build one per request.
type ToolManager struct {
	tools map[string]Tool
	order []string
	calls []ToolCall
}

// NewToolManager registers tools in order. It panics on a tool without a name.
func NewToolManager(tools ...Tool) *ToolManager {
	tm := &ToolManager{tools: make(map[string]Tool)}
	for _, tool := range tools {
		if err := tm.Register(tool); err != nil {
			panic(fmt.Sprintf("common_tools: %v", err))
		}
	}
	return tm
}

// Register adds a tool under its declared name. Registering the same name again
// replaces the tool but keeps its original position.
func (tm *ToolManager) Register(tool Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool must declare a name")
	}
	if _, exists := tm.tools[name]; !exists {
		tm.order = append(tm.order, name)
	}
	tm.tools[name] = tool
	return nil
}

// GetToolDefinitions returns every registered schema in registration order.
func (tm *ToolManager) GetToolDefinitions() []models.FunctionDeclaration {
	defs := make([]models.FunctionDeclaration, 0, len(tm.order))
	for _, name := range tm.order {
		defs = append(defs, tm.tools[name].Definition())
	}
	return defs
}

// ExecuteTool runs the named tool. An unknown name is reported in the returned
// string rather than as an error; tool errors are returned unchanged.
func (tm *ToolManager) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	start := time.Now()
	call := ToolCall{Tool: name, Arguments: args, StartedAt: start}

	tool, ok := tm.tools[name]
	if !ok {
		call.Status = CallStatusNotFound
		tm.calls = append(tm.calls, call)
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	result, err := tool.Execute(ctx, args)
	call.Duration = time.Since(start)
	if err != nil {
		call.Status = CallStatusError
		call.Error = err.Error()
	} else {
		call.Status = CallStatusOK
	}
	tm.calls = append(tm.calls, call)
	return result, err
}

// GetLastSources returns the sources of the first tool that has any. The result
// is never nil.
func (tm *ToolManager) GetLastSources() []models.Source {
	for _, name := range tm.order {
		tracker, ok := tm.tools[name].(SourceTracker)
		if !ok {
			continue
		}
		if sources := tracker.LastSources(); len(sources) > 0 {
			return sources
		}
	}
	return []models.Source{}
}

// ResetSources clears the recorded sources of every tool that tracks them.
func (tm *ToolManager) ResetSources() {
	for _, tool := range tm.tools {
		if tracker, ok := tool.(SourceTracker); ok {
			tracker.ResetSources()
		}
	}
}

// Calls returns the dispatches made so far, oldest first.
func (tm *ToolManager) Calls() []ToolCall {
	out := make([]ToolCall, len(tm.calls))
	copy(out, tm.calls)
	return out
}
