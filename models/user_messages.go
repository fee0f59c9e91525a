package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry. Its payload is plain Text, model Parts
// (assistant turns echoing a tool request), or Tool_Results (user turns
// answering one).
type Turn struct {
	Role         string        `json:"role"`
	Text         string        `json:"text,omitempty"`
	Parts        []Model_Part  `json:"parts,omitempty"`
	Tool_Results []Tool_Result `json:"tool_results,omitempty"`
}

func UserText(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

func AssistantParts(parts []Model_Part) Turn {
	return Turn{Role: RoleAssistant, Parts: parts}
}

func ToolResults(results []Tool_Result) Turn {
	return Turn{Role: RoleUser, Tool_Results: results}
}

// IsStructured reports whether the turn carries content items rather than plain text.
func (t Turn) IsStructured() bool {
	return len(t.Parts) > 0 || len(t.Tool_Results) > 0
}
