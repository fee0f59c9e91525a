package courserag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Desarso/courserag/common_tools"
	"github.com/Desarso/courserag/models"
	"github.com/Desarso/courserag/stores"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueryRequired  = errors.New("query is required")
	ErrTracesDisabled = errors.New("tool traces are not recorded by this history store")
)

// CourseStore is the vector store as the query service sees it.
type CourseStore interface {
	common_tools.VectorStore
	CourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
}

// RAGSystem answers course questions: it loads session history, lets the
// generator search course content, and records the exchange.
type RAGSystem struct {
	generator *Generator
	courses   CourseStore
	history   stores.HistoryStore
	traces    stores.TraceStore
	logger    logrus.FieldLogger
}

func NewRAGSystem(generator *Generator, courses CourseStore, history stores.HistoryStore, logger logrus.FieldLogger) *RAGSystem {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RAGSystem{
		generator: generator,
		courses:   courses,
		history:   history,
		logger:    logger,
	}
}

// WithTraceStore enables persisting tool invocations per session.
func (r *RAGSystem) WithTraceStore(traces stores.TraceStore) *RAGSystem {
	r.traces = traces
	return r
}

// newToolManager builds the per-request tool set; sources are request scoped.
func (r *RAGSystem) newToolManager() *common_tools.ToolManager {
	return common_tools.NewToolManager(common_tools.NewCourseSearchTool(r.courses, r.logger))
}

// Query answers one question. With a session id the prior exchanges are replayed
// into the prompt and this exchange is recorded. Sources are never nil.
func (r *RAGSystem) Query(ctx context.Context, query, sessionID string) (string, []models.Source, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return "", nil, ErrQueryRequired
	}
	log := r.logger.WithField("session_id", sessionID)

	var history string
	if sessionID != "" {
		var err error
		history, err = r.history.GetConversationHistory(ctx, sessionID)
		if err != nil {
			queryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return "", nil, fmt.Errorf("load history: %w", err)
		}
	}

	tm := r.newToolManager()
	prompt := "Answer this question about course materials: " + query
	answer, err := r.generator.Generate(ctx, prompt, history, tm.GetToolDefinitions(), tm.ExecuteTool)
	if err != nil {
		queryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", nil, err
	}

	sources := tm.GetLastSources()
	tm.ResetSources()

	if sessionID != "" {
		if err := r.history.AddExchange(ctx, sessionID, query, answer); err != nil {
			log.WithError(err).Error("Failed to record exchange")
		}
		r.saveTraces(ctx, sessionID, tm.Calls())
	}

	log.WithFields(logrus.Fields{
		"sources":     len(sources),
		"tool_calls":  len(tm.Calls()),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Query answered")
	queryDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return answer, sources, nil
}

func (r *RAGSystem) saveTraces(ctx context.Context, sessionID string, calls []common_tools.ToolCall) {
	if r.traces == nil || len(calls) == 0 {
		return
	}
	traces := make([]*stores.ToolTrace, 0, len(calls))
	for _, call := range calls {
		traces = append(traces, &stores.ToolTrace{
			Tool:          call.Tool,
			Status:        call.Status,
			Error:         call.Error,
			ArgumentsJSON: call.ArgumentsJSON(),
			DurationMS:    call.Duration.Milliseconds(),
		})
	}
	if err := r.traces.SaveTraces(ctx, sessionID, traces); err != nil {
		r.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to save tool traces")
	}
}

func (r *RAGSystem) CreateSession(ctx context.Context) (string, error) {
	id, err := r.history.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (r *RAGSystem) CourseAnalytics(ctx context.Context) (models.CourseStats, error) {
	titles, err := r.courses.CourseTitles(ctx)
	if err != nil {
		return models.CourseStats{}, err
	}
	count, err := r.courses.CourseCount(ctx)
	if err != nil {
		return models.CourseStats{}, err
	}
	return models.CourseStats{Total_Courses: count, Course_Titles: titles}, nil
}

// SessionTraces lists the tool invocations recorded for a session, oldest first.
func (r *RAGSystem) SessionTraces(ctx context.Context, sessionID string) ([]models.ToolTraceResponse, error) {
	if r.traces == nil {
		return nil, ErrTracesDisabled
	}
	traces, err := r.traces.GetTracesByConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load traces: %w", err)
	}
	out := make([]models.ToolTraceResponse, 0, len(traces))
	for _, t := range traces {
		out = append(out, models.ToolTraceResponse{
			Sequence:   t.Sequence,
			Tool:       t.Tool,
			Arguments:  t.Arguments,
			Status:     t.Status,
			Error:      t.Error,
			DurationMS: t.DurationMS,
			CreatedAt:  t.CreatedAt,
		})
	}
	return out, nil
}

// Ping checks the vector and history stores.
func (r *RAGSystem) Ping(ctx context.Context) error {
	if p, ok := r.courses.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("vector store: %w", err)
		}
	}
	if err := r.history.Ping(ctx); err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	return nil
}
