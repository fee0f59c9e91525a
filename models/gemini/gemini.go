package gemini

import (
	"context"
	"fmt"

	"github.com/Desarso/courserag/models"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	DefaultModel     = "gemini-2.0-flash"
	DefaultMaxTokens = 800
)

// contentGenerator is the slice of *genai.Models the adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini_Model implements the Model interface on top of the genai SDK.
type Gemini_Model struct {
	Model       string
	Temperature float32
	MaxTokens   int32

	generator contentGenerator
}

// New creates a Gemini API client. An empty apiKey lets genai fall back to GOOGLE_API_KEY / GEMINI_API_KEY.
func New(ctx context.Context, apiKey, model string) (*Gemini_Model, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini_Model{
		Model:     model,
		MaxTokens: DefaultMaxTokens,
		generator: client.Models,
	}, nil
}

func (g *Gemini_Model) Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error) {
	contents, err := toContents(request.Messages)
	if err != nil {
		return models.Model_Response{}, err
	}
	if len(contents) == 0 {
		return models.Model_Response{}, fmt.Errorf("cannot create Gemini request with no messages")
	}

	modelToUse := g.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	resp, err := g.generator.GenerateContent(ctx, modelToUse, contents, g.buildConfig(request))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return toModelResponse(resp), nil
}

func (g *Gemini_Model) buildConfig(request models.Model_Request) *genai.GenerateContentConfig {
	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.Temperature),
		MaxOutputTokens: maxTokens,
	}
	if request.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.System}},
		}
	}
	if len(request.Tools) > 0 {
		config.Tools = []*genai.Tool{ConvertToGeminiTool(request.Tools)}
		if request.Tool_Choice != nil && request.Tool_Choice.Type == models.ToolChoiceAuto {
			config.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode: genai.FunctionCallingConfigModeAuto,
				},
			}
		}
	}
	return config
}

// toContents converts transcript turns; assistant turns use Gemini's "model" role.
func toContents(turns []models.Turn) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for i, turn := range turns {
		var role string
		switch turn.Role {
		case models.RoleUser:
			role = "user"
		case models.RoleAssistant:
			role = "model"
		default:
			return nil, fmt.Errorf("message %d: unknown role: %s", i, turn.Role)
		}

		var parts []*genai.Part
		if turn.Text != "" {
			parts = append(parts, &genai.Part{Text: turn.Text})
		}
		for _, part := range turn.Parts {
			if part.Text != nil && *part.Text != "" {
				parts = append(parts, &genai.Part{Text: *part.Text})
			}
			if part.FunctionCall != nil {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}})
			}
		}
		for _, tr := range turn.Tool_Results {
			key := "result"
			if tr.Is_Error {
				key = "error"
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       tr.Tool_ID,
				Name:     tr.Tool_Name,
				Response: map[string]any{key: tr.Tool_Output},
			}})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, nil
}

// toModelResponse reads the first candidate. Gemini has no tool_use stop reason,
// so any function call in the candidate is reported as one.
func toModelResponse(resp *genai.GenerateContentResponse) models.Model_Response {
	modelResp := models.Model_Response{Stop_Reason: models.StopReasonEndTurn}
	if resp == nil {
		return modelResp
	}
	if resp.UsageMetadata != nil {
		modelResp.Usage = models.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return modelResp
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		modelResp.Stop_Reason = models.StopReasonMaxTokens
	}
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			modelResp.Parts = append(modelResp.Parts, models.TextPart(part.Text))
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			modelResp.Parts = append(modelResp.Parts, models.FunctionCallPart(id, part.FunctionCall.Name, args))
			modelResp.Stop_Reason = models.StopReasonToolUse
		}
	}
	return modelResp
}
