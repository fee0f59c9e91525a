package sessions

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Desarso/courserag/models"
	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T, service QueryService) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(newTestRouter(service, ""))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	var frame map[string]interface{}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWebSocketAnswersQueries(t *testing.T) {
	service := &fakeService{
		answer:  "MCP is a protocol.",
		sources: []models.Source{{Name: "MCP - Lesson 1"}},
	}
	conn := dialTestServer(t, service)

	if err := conn.WriteJSON(WebSocketQueryMessage{Query: "What is MCP?"}); err != nil {
		t.Fatal(err)
	}
	answer := readFrame(t, conn)
	if answer["type"] != FrameAnswer || answer["answer"] != "MCP is a protocol." {
		t.Fatalf("unexpected answer frame %v", answer)
	}
	if answer["session_id"] != "session_1" {
		t.Errorf("expected a created session, got %v", answer["session_id"])
	}
	if done := readFrame(t, conn); done["type"] != FrameDone {
		t.Fatalf("expected done frame, got %v", done)
	}

	// The session sticks for later frames on the same connection.
	if err := conn.WriteJSON(WebSocketQueryMessage{Query: "And lesson 2?"}); err != nil {
		t.Fatal(err)
	}
	readFrame(t, conn)
	readFrame(t, conn)

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.calls) != 2 || service.calls[1].sessionID != "session_1" {
		t.Errorf("unexpected calls %+v", service.calls)
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	service := &fakeService{queryErr: errors.New("model unavailable")}
	conn := dialTestServer(t, service)

	if err := conn.WriteJSON(WebSocketQueryMessage{Query: "q", Session_ID: "abc"}); err != nil {
		t.Fatal(err)
	}
	frame := readFrame(t, conn)
	if frame["type"] != FrameError || frame["error"] != "model unavailable" {
		t.Fatalf("unexpected error frame %v", frame)
	}
	if done := readFrame(t, conn); done["type"] != FrameDone {
		t.Fatalf("expected done frame, got %v", done)
	}

	// Empty queries and malformed frames are reported without closing the connection.
	if err := conn.WriteJSON(WebSocketQueryMessage{Query: " "}); err != nil {
		t.Fatal(err)
	}
	if frame := readFrame(t, conn); frame["type"] != FrameError {
		t.Fatalf("expected error frame for empty query, got %v", frame)
	}
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if frame := readFrame(t, conn); frame["type"] != FrameError {
		t.Fatalf("expected error frame for bad json, got %v", frame)
	}
	if done := readFrame(t, conn); done["type"] != FrameDone {
		t.Fatalf("expected done frame, got %v", done)
	}
}

func TestWebSocketSurvivesEmptyAndTruncatedFrames(t *testing.T) {
	service := &fakeService{answer: "still here"}
	conn := dialTestServer(t, service)

	for _, frame := range []string{"", `{"query": "What`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatal(err)
		}
		if got := readFrame(t, conn); got["type"] != FrameError {
			t.Fatalf("frame %q: expected error frame, got %v", frame, got)
		}
		if done := readFrame(t, conn); done["type"] != FrameDone {
			t.Fatalf("frame %q: expected done frame, got %v", frame, done)
		}
	}

	if err := conn.WriteJSON(WebSocketQueryMessage{Query: "q"}); err != nil {
		t.Fatal(err)
	}
	if got := readFrame(t, conn); got["type"] != FrameAnswer || got["answer"] != "still here" {
		t.Fatalf("connection unusable after bad frames: %v", got)
	}
}
