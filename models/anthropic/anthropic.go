package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Desarso/courserag/models"
)

const (
	DefaultBaseURL     = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion  = "2023-06-01"
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 800
	DefaultHTTPTimeout = 120 * time.Second
)

// Anthropic_Model implements the Model interface for the Anthropic Messages API.
// All fields are configuration; a single value is safe to share between requests.
type Anthropic_Model struct {
	Model       string
	APIKey      string
	Temperature *float64
	MaxTokens   *int
	BaseURL     string       // Optional: custom API endpoint
	HTTPClient  *http.Client // Optional: defaults to a client with DefaultHTTPTimeout
}

// New returns an adapter with deterministic decoding and the default output cap.
func New(apiKey, model string) *Anthropic_Model {
	temperature := 0.0
	maxTokens := DefaultMaxTokens
	return &Anthropic_Model{
		Model:       model,
		APIKey:      apiKey,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

// Model_Request sends one non-streaming Messages API call.
func (a *Anthropic_Model) Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error) {
	anthropicReq, err := a.buildRequest(request)
	if err != nil {
		return models.Model_Response{}, err
	}

	jsonBytes, err := json.Marshal(anthropicReq)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return models.Model_Response{}, apiErr
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return toModelResponse(anthropicResp), nil
}

func (a *Anthropic_Model) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// toModelResponse converts an Anthropic response to a Model_Response.
func toModelResponse(resp AnthropicResponse) models.Model_Response {
	modelResp := models.Model_Response{
		Stop_Reason: resp.StopReason,
		Usage: models.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			modelResp.Parts = append(modelResp.Parts, models.TextPart(block.Text))
		case "tool_use":
			args := make(map[string]interface{})
			if block.Input != nil {
				// Input can be a map or raw JSON
				switch v := block.Input.(type) {
				case map[string]interface{}:
					args = v
				default:
					b, _ := json.Marshal(v)
					_ = json.Unmarshal(b, &args)
				}
			}
			modelResp.Parts = append(modelResp.Parts, models.FunctionCallPart(block.ID, block.Name, args))
		}
	}

	return modelResp
}

// buildRequest constructs the Anthropic API request.
func (a *Anthropic_Model) buildRequest(request models.Model_Request) (AnthropicRequest, error) {
	messages := make([]AnthropicMsg, 0, len(request.Messages))
	for i, turn := range request.Messages {
		msg, err := convertTurn(turn)
		if err != nil {
			return AnthropicRequest{}, fmt.Errorf("message %d: %w", i, err)
		}
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return AnthropicRequest{}, fmt.Errorf("cannot create Anthropic request with no messages")
	}

	// Merge consecutive same-role messages (Anthropic requires alternating roles)
	messages = mergeConsecutiveMessages(messages)

	modelToUse := a.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	maxTokens := DefaultMaxTokens
	if a.MaxTokens != nil {
		maxTokens = *a.MaxTokens
	}

	req := AnthropicRequest{
		Model:       modelToUse,
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      request.System,
		Temperature: a.Temperature,
	}

	if len(request.Tools) > 0 {
		req.Tools = ConvertToAnthropicTools(request.Tools)
		if request.Tool_Choice != nil {
			req.ToolChoice = &ToolChoice{Type: request.Tool_Choice.Type}
		}
	}

	return req, nil
}

// convertTurn maps a transcript turn onto the Messages API shape.
func convertTurn(turn models.Turn) (AnthropicMsg, error) {
	if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
		return AnthropicMsg{}, fmt.Errorf("unknown role: %s", turn.Role)
	}
	if !turn.IsStructured() {
		return AnthropicMsg{Role: turn.Role, Content: turn.Text}, nil
	}

	var blocks []ContentBlock
	if turn.Text != "" {
		blocks = append(blocks, ContentBlock{Type: "text", Text: turn.Text})
	}
	for _, part := range turn.Parts {
		if part.Text != nil && *part.Text != "" {
			blocks = append(blocks, ContentBlock{Type: "text", Text: *part.Text})
		}
		if part.FunctionCall != nil {
			input := part.FunctionCall.Args
			if input == nil {
				input = map[string]interface{}{}
			}
			blocks = append(blocks, ContentBlock{
				Type:  "tool_use",
				ID:    part.FunctionCall.ID,
				Name:  part.FunctionCall.Name,
				Input: input,
			})
		}
	}
	for _, tr := range turn.Tool_Results {
		blocks = append(blocks, ContentBlock{
			Type:      "tool_result",
			ToolUseID: tr.Tool_ID,
			Content:   tr.Tool_Output,
			IsError:   tr.Is_Error,
		})
	}
	return AnthropicMsg{Role: turn.Role, Content: blocks}, nil
}

// mergeConsecutiveMessages merges consecutive messages with the same role.
// Anthropic requires strictly alternating user/assistant roles.
func mergeConsecutiveMessages(messages []AnthropicMsg) []AnthropicMsg {
	if len(messages) <= 1 {
		return messages
	}

	var result []AnthropicMsg
	for _, msg := range messages {
		if len(result) > 0 && result[len(result)-1].Role == msg.Role {
			prev := &result[len(result)-1]
			prevBlocks := toContentBlocks(prev.Content)
			newBlocks := toContentBlocks(msg.Content)
			prev.Content = append(prevBlocks, newBlocks...)
		} else {
			result = append(result, msg)
		}
	}
	return result
}

// toContentBlocks converts a message content (string or []ContentBlock) to []ContentBlock.
func toContentBlocks(content interface{}) []ContentBlock {
	switch v := content.(type) {
	case string:
		return []ContentBlock{{Type: "text", Text: v}}
	case []ContentBlock:
		return v
	default:
		return nil
	}
}

// setHeaders sets required headers for Anthropic API requests.
func (a *Anthropic_Model) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", DefaultAPIVersion)
}
