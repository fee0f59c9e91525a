package stores

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memorySession struct {
	messages     []Message
	lastActiveAt time.Time
}

// MemoryStore is a process-local HistoryStore. History is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*memorySession
	maxHistory int
}

func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &MemoryStore{
		sessions:   make(map[string]*memorySession),
		maxHistory: maxHistory,
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sessions[id] = &memorySession{lastActiveAt: time.Now()}
	return id, nil
}

func (s *MemoryStore) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	seq := len(sess.messages)
	sess.messages = append(sess.messages,
		Message{ConversationID: sessionID, Sequence: seq + 1, Role: RoleUser, Content: query},
		Message{ConversationID: sessionID, Sequence: seq + 2, Role: RoleAssistant, Content: answer},
	)
	// Only the rendered window is ever read back.
	if keep := s.maxHistory * 2; len(sess.messages) > keep {
		sess.messages = append([]Message(nil), sess.messages[len(sess.messages)-keep:]...)
	}
	sess.lastActiveAt = time.Now()
	return nil
}

func (s *MemoryStore) GetConversationHistory(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	msgs := sess.messages
	if keep := s.maxHistory * 2; len(msgs) > keep {
		msgs = msgs[len(msgs)-keep:]
	}
	return FormatHistory(SanitizeHistory(msgs)), nil
}

func (s *MemoryStore) PruneSessions(ctx context.Context, idleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.lastActiveAt.Before(idleBefore) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
