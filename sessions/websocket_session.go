package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the request and answers query frames until the client disconnects.
func HandleWebSocket(service QueryService, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			return
		}
		defer conn.Close()

		session := NewWebSocketSession(conn, service, logger)
		if err := session.Run(c.Request.Context()); err != nil {
			session.Logger.WithError(err).Debug("WebSocket session ended")
		}
	}
}

// Run reads query frames and answers each with an answer or error frame
// followed by a done frame. The session id sticks once assigned.
func (ws *WebSocketSession) Run(ctx context.Context) error {
	for {
		_, data, err := ws.Writer.Conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}

		// Empty, truncated or malformed frames leave the connection usable.
		var msg WebSocketQueryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if werr := ws.writeFailure("invalid message: " + err.Error()); isFatal(werr) {
				return werr
			}
			continue
		}

		if err := ws.RunInteraction(ctx, msg); isFatal(err) {
			return err
		}
	}
}

// RunInteraction answers a single query frame.
func (ws *WebSocketSession) RunInteraction(ctx context.Context, msg WebSocketQueryMessage) error {
	ws.Writer.StartTime = time.Now()
	if msg.Session_ID != "" {
		ws.SessionID = msg.Session_ID
	}

	if strings.TrimSpace(msg.Query) == "" {
		return ws.writeFailure("query is required")
	}

	if ws.SessionID == "" {
		id, err := ws.Service.CreateSession(ctx)
		if err != nil {
			ws.Logger.WithError(err).Error("Failed to create session")
			return ws.writeFailure("failed to create session: " + err.Error())
		}
		ws.SessionID = id
	}

	log := ws.Logger.WithField("session_id", ws.SessionID)
	answer, sources, err := ws.Service.Query(ctx, msg.Query, ws.SessionID)
	if err != nil {
		log.WithError(err).Error("Query failed")
		return ws.writeFailure(err.Error())
	}

	if err := ws.Writer.WriteAnswer(answer, sources, ws.SessionID); err != nil {
		return &QueryError{Message: "error writing answer: " + err.Error(), Fatal: true}
	}
	if err := ws.Writer.WriteDone(); err != nil {
		return &QueryError{Message: "error writing done frame: " + err.Error(), Fatal: true}
	}
	return nil
}

// writeFailure sends an error frame then a done frame. The returned error is
// non-fatal unless the connection itself failed.
func (ws *WebSocketSession) writeFailure(message string) error {
	if err := ws.Writer.WriteError(message); err != nil {
		return &QueryError{Message: "error writing error frame: " + err.Error(), Fatal: true}
	}
	if err := ws.Writer.WriteDone(); err != nil {
		return &QueryError{Message: "error writing done frame: " + err.Error(), Fatal: true}
	}
	return &QueryError{Message: message, Fatal: false}
}

func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var qerr *QueryError
	return !errors.As(err, &qerr) || qerr.Fatal
}
