package sessions

import (
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// NewWebSocketSession creates a session bound to one WebSocket connection
func NewWebSocketSession(conn *websocket.Conn, service QueryService, logger logrus.FieldLogger) *WebSocketSession {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"transport": "ws", "remote": conn.RemoteAddr().String()})

	return &WebSocketSession{
		Service: service,
		Writer:  &WebSocketWriter{Conn: conn, Logger: logger},
		Logger:  logger,
	}
}

// NewHTTPSession creates the REST handlers; staticDir may be empty
func NewHTTPSession(service QueryService, logger logrus.FieldLogger, staticDir string) *HTTPSession {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &HTTPSession{
		Service:   service,
		Logger:    logger.WithField("transport", "http"),
		StaticDir: staticDir,
	}
}
