package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormStore holds the history logic shared by the SQLite and PostgreSQL stores.
type gormStore struct {
	db         *gorm.DB
	maxHistory int
}

func newGormStore(db *gorm.DB, maxHistory int) (*gormStore, error) {
	if err := db.AutoMigrate(&Conversation{}, &Message{}, &ToolTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &gormStore{db: db, maxHistory: maxHistory}, nil
}

// DB exposes the connection so other stores (traces) can share it.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) CreateSession(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database connection is nil")
	}
	id := uuid.NewString()
	conv := Conversation{ConversationID: id, LastActiveAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (s *gormStore) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv Conversation
		err := tx.Where("conversation_id = ?", sessionID).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			conv = Conversation{ConversationID: sessionID}
			if err := tx.Create(&conv).Error; err != nil {
				return fmt.Errorf("failed to create session %s: %w", sessionID, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}

		seq := conv.MessageCount
		msgs := []Message{
			{ConversationID: sessionID, Sequence: seq + 1, Role: RoleUser, Content: query},
			{ConversationID: sessionID, Sequence: seq + 2, Role: RoleAssistant, Content: answer},
		}
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to create message records: %w", err)
		}

		return tx.Model(&Conversation{}).
			Where("conversation_id = ?", sessionID).
			Updates(map[string]interface{}{
				"message_count":  seq + 2,
				"last_active_at": time.Now(),
			}).Error
	})
}

func (s *gormStore) GetConversationHistory(ctx context.Context, sessionID string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database connection is nil")
	}
	if sessionID == "" {
		return "", nil
	}

	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", sessionID).
		Order("sequence DESC").
		Limit(s.maxHistory * 2).
		Find(&msgs).Error
	if err != nil {
		return "", fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Newest first from the query; flip back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return FormatHistory(SanitizeHistory(msgs)), nil
}

func (s *gormStore) PruneSessions(ctx context.Context, idleBefore time.Time) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var ids []string
	err := s.db.WithContext(ctx).Model(&Conversation{}).
		Where("last_active_at < ?", idleBefore).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find idle sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id IN ?", ids).Delete(&ToolTrace{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("conversation_id IN ?", ids).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("conversation_id IN ?", ids).Delete(&Conversation{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return len(ids), nil
}

func (s *gormStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
