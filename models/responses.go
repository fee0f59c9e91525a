package models

import "strings"

// Stop reasons reported by model adapters.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonToolUse   = "tool_use"
	StopReasonMaxTokens = "max_tokens"
)

type Model_Response struct {
	Stop_Reason string       `json:"stop_reason"`
	Parts       []Model_Part `json:"parts"`
	Usage       Usage        `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

//may be a string or a function call and it will be parts

type FunctionCall struct {
	ID   string                 `json:"id,omitempty"` // Unique ID for this specific call instance
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Model_Part carries exactly one of Text or FunctionCall.
type Model_Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

func TextPart(text string) Model_Part {
	return Model_Part{Text: &text}
}

func FunctionCallPart(id, name string, args map[string]interface{}) Model_Part {
	return Model_Part{FunctionCall: &FunctionCall{ID: id, Name: name, Args: args}}
}

// WantsTool reports whether the model stopped to request a tool invocation.
func (r Model_Response) WantsTool() bool {
	return r.Stop_Reason == StopReasonToolUse
}

// FunctionCalls returns the tool invocation requests in emission order.
func (r Model_Response) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, part := range r.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}

// Text concatenates the text segments of the response.
func (r Model_Response) Text() string {
	var sb strings.Builder
	for _, part := range r.Parts {
		if part.Text != nil {
			sb.WriteString(*part.Text)
		}
	}
	return sb.String()
}
