package models

// Model_Request is the full input for one model call. Adapters must treat it as read-only.
type Model_Request struct {
	System      string                `json:"system,omitempty"`
	Messages    []Turn                `json:"messages"`
	Tools       []FunctionDeclaration `json:"tools,omitempty"`
	Tool_Choice *Tool_Choice          `json:"tool_choice,omitempty"`
}

// Tool_Choice controls whether the model may call tools. Only "auto" is used today.
type Tool_Choice struct {
	Type string `json:"type"`
}

const ToolChoiceAuto = "auto"

// AutoToolChoice returns the policy that lets the model decide when to call a tool.
func AutoToolChoice() *Tool_Choice {
	return &Tool_Choice{Type: ToolChoiceAuto}
}

type Tool_Result struct {
	Tool_ID     string `json:"tool_id"` // The tool call ID to match with the tool call
	Tool_Name   string `json:"tool_name"`
	Tool_Output string `json:"tool_output"`
	Is_Error    bool   `json:"is_error,omitempty"`
}
