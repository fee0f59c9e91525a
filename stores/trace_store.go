package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ToolTrace records one tool dispatch made while answering a query.
// Indexed by conversation_id for per-session retrieval.
type ToolTrace struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	ConversationID string         `gorm:"index:idx_trace_conv;not null" json:"conversation_id"`
	Sequence       int            `gorm:"index:idx_trace_conv;not null" json:"sequence"`
	Tool           string         `gorm:"not null" json:"tool"`
	Status         string         `gorm:"not null" json:"status"` // ok, error, not_found
	Error          string         `gorm:"type:text" json:"error,omitempty"`
	ArgumentsJSON  string         `gorm:"type:text" json:"-"`           // Stored as JSON string
	Arguments      map[string]any `gorm:"-" json:"arguments,omitempty"` // Not stored, computed from ArgumentsJSON
	DurationMS     int64          `json:"duration_ms"`
}

// BeforeSave marshals Arguments to ArgumentsJSON
func (t *ToolTrace) BeforeSave(tx *gorm.DB) error {
	if t.Arguments != nil {
		data, err := json.Marshal(t.Arguments)
		if err != nil {
			return err
		}
		t.ArgumentsJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals ArgumentsJSON to Arguments
func (t *ToolTrace) AfterFind(tx *gorm.DB) error {
	if t.ArgumentsJSON != "" {
		return json.Unmarshal([]byte(t.ArgumentsJSON), &t.Arguments)
	}
	return nil
}

// TraceStore interface for trace persistence operations
type TraceStore interface {
	// SaveTraces appends traces for a conversation, continuing its sequence numbering
	SaveTraces(ctx context.Context, conversationID string, traces []*ToolTrace) error

	// GetTracesByConversation retrieves all traces for a conversation, oldest first
	GetTracesByConversation(ctx context.Context, conversationID string) ([]*ToolTrace, error)

	// DeleteTracesByConversation removes all traces for a conversation
	DeleteTracesByConversation(ctx context.Context, conversationID string) error
}

// GORMTraceStore implements TraceStore for SQLite/PostgreSQL via GORM
type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM database connection
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	// Auto-migrate the trace table
	if err := db.AutoMigrate(&ToolTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tool_traces table: %w", err)
	}

	return &GORMTraceStore{db: db}, nil
}

func (s *GORMTraceStore) SaveTraces(ctx context.Context, conversationID string, traces []*ToolTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(traces) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&ToolTrace{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to read trace sequence: %w", err)
		}
		for i, trace := range traces {
			trace.ConversationID = conversationID
			trace.Sequence = last + i + 1
		}
		return tx.CreateInBatches(traces, 100).Error
	})
}

func (s *GORMTraceStore) GetTracesByConversation(ctx context.Context, conversationID string) ([]*ToolTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	traces := []*ToolTrace{}
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence ASC").
		Find(&traces).Error

	return traces, err
}

func (s *GORMTraceStore) DeleteTracesByConversation(ctx context.Context, conversationID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Delete(&ToolTrace{}).Error
}
