package courserag

import (
	"context"
	"fmt"
	"time"

	"github.com/Desarso/courserag/models"
	"github.com/sirupsen/logrus"
)

// MaxToolRounds caps how many model turns may request tools before the drain call.
const MaxToolRounds = 2

// SystemPrompt is the fixed policy sent with every model call.
const SystemPrompt = ` You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool **only** for questions about specific course content or detailed educational materials
- You may search **up to 2 times** per query if needed (e.g., to compare content across courses or to refine an initial search)
- If your first search does not fully answer the question, you may search again with a different query or course filter
- Synthesize search results into accurate, fact-based responses
- If search yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without searching
- **Course-specific questions**: Search first, then answer
- **No meta-commentary**:
 - Provide direct answers only — no reasoning process, search explanations, or question-type analysis
 - Do not mention "based on the search results"


All responses must be:
1. **Brief, Concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.
`

// BuildSystemPrompt appends prior conversation to SystemPrompt when there is any.
func BuildSystemPrompt(history string) string {
	if history == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n\nPrevious conversation:\n" + history
}

// Model is a stateless language model client.
type Model interface {
	Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error)
}

// ToolExecutorFunc runs a tool by name. A returned error is reported to the
// model as a failed tool result.
type ToolExecutorFunc func(ctx context.Context, name string, args map[string]interface{}) (string, error)

// Generator drives the bounded model/tool loop that produces one answer.
type Generator struct {
	Model  Model
	Logger logrus.FieldLogger
}

func NewGenerator(model Model, logger logrus.FieldLogger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{Model: model, Logger: logger}
}

// Generate answers query. Each of up to MaxToolRounds model calls may request
// tools; their results are fed back in one user turn. A round with a failed
// tool, or running out of rounds, ends with one more call made without tools.
// Errors from the model itself are returned to the caller.
func (g *Generator) Generate(ctx context.Context, query, history string, tools []models.FunctionDeclaration, exec ToolExecutorFunc) (string, error) {
	system := BuildSystemPrompt(history)
	transcript := []models.Turn{models.UserText(query)}

	rounds := 0
	defer func() { toolRoundsCount.Observe(float64(rounds)) }()

	for round := 1; round <= MaxToolRounds; round++ {
		request := models.Model_Request{System: system, Messages: transcript}
		if len(tools) > 0 {
			request.Tools = tools
			request.Tool_Choice = models.AutoToolChoice()
		}

		resp, err := g.call(ctx, "round", request)
		if err != nil {
			return "", fmt.Errorf("model call in round %d: %w", round, err)
		}
		if !resp.WantsTool() || exec == nil {
			return resp.Text(), nil
		}

		rounds = round
		transcript = append(transcript, models.AssistantParts(resp.Parts))

		results, failed := g.dispatch(ctx, round, resp.FunctionCalls(), exec)
		if len(results) > 0 {
			transcript = append(transcript, models.ToolResults(results))
		}
		if failed {
			g.Logger.WithField("round", round).Warn("Tool failed, skipping remaining rounds")
			break
		}
	}

	resp, err := g.call(ctx, "drain", models.Model_Request{System: system, Messages: transcript})
	if err != nil {
		return "", fmt.Errorf("final model call: %w", err)
	}
	return resp.Text(), nil
}

// dispatch runs the calls in the order the model emitted them.
func (g *Generator) dispatch(ctx context.Context, round int, calls []models.FunctionCall, exec ToolExecutorFunc) ([]models.Tool_Result, bool) {
	results := make([]models.Tool_Result, 0, len(calls))
	failed := false
	for _, call := range calls {
		log := g.Logger.WithFields(logrus.Fields{"round": round, "tool": call.Name, "tool_id": call.ID})

		output, err := exec(ctx, call.Name, call.Args)
		result := models.Tool_Result{Tool_ID: call.ID, Tool_Name: call.Name, Tool_Output: output}
		if err != nil {
			log.WithError(err).Warn("Tool execution failed")
			result.Tool_Output = err.Error()
			result.Is_Error = true
			failed = true
			toolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		} else {
			log.Debug("Tool executed")
			toolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
		}
		results = append(results, result)
	}
	return results, failed
}

func (g *Generator) call(ctx context.Context, phase string, request models.Model_Request) (models.Model_Response, error) {
	start := time.Now()
	resp, err := g.Model.Model_Request(ctx, request)
	modelDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	if err != nil {
		modelCallsTotal.WithLabelValues(phase, "error").Inc()
		return models.Model_Response{}, err
	}
	modelCallsTotal.WithLabelValues(phase, "ok").Inc()
	modelTokensTotal.WithLabelValues("input").Add(float64(resp.Usage.InputTokens))
	modelTokensTotal.WithLabelValues("output").Add(float64(resp.Usage.OutputTokens))
	return resp, nil
}
