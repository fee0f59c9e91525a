package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/Desarso/courserag/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// QueryService is what the transport layer needs from the course assistant.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (string, []models.Source, error)
	CreateSession(ctx context.Context) (string, error)
	CourseAnalytics(ctx context.Context) (models.CourseStats, error)
	SessionTraces(ctx context.Context, sessionID string) ([]models.ToolTraceResponse, error)
	Ping(ctx context.Context) error
}

// QueryError represents errors that can occur while handling a query
type QueryError struct {
	Message string
	Fatal   bool
}

func (e *QueryError) Error() string {
	return e.Message
}

// WebSocket frame types
const (
	FrameAnswer = "answer"
	FrameError  = "error"
	FrameDone   = "done"
)

// WebSocketQueryMessage is an inbound query frame
type WebSocketQueryMessage struct {
	Query      string `json:"query"`
	Session_ID string `json:"session_id,omitempty"`
}

// WebSocketAnswerMessage carries the answer to one query frame
type WebSocketAnswerMessage struct {
	Type       string          `json:"type"` // "answer"
	Answer     string          `json:"answer"`
	Sources    []models.Source `json:"sources"`
	Session_ID string          `json:"session_id"`
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn      *websocket.Conn
	Logger    logrus.FieldLogger
	StartTime time.Time
	mu        sync.Mutex
}

func (w *WebSocketWriter) WriteAnswer(answer string, sources []models.Source, sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.StartTime.IsZero() {
		w.Logger.WithField("elapsed_ms", time.Since(w.StartTime).Milliseconds()).Debug("Answer ready")
	}
	return w.Conn.WriteJSON(WebSocketAnswerMessage{
		Type:       FrameAnswer,
		Answer:     answer,
		Sources:    sources,
		Session_ID: sessionID,
	})
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": FrameError, "error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": FrameDone})
}

// HTTPSession serves the REST API on top of a QueryService
type HTTPSession struct {
	Service   QueryService
	Logger    logrus.FieldLogger
	StaticDir string
}

// WebSocketSession answers query frames on one connection
type WebSocketSession struct {
	Service   QueryService
	SessionID string
	Writer    *WebSocketWriter
	Logger    logrus.FieldLogger
}
