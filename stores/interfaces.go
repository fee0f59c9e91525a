package stores

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultMaxHistory is the number of exchanges kept in the rendered history.
	DefaultMaxHistory = 2
)

// Message is one side of an exchange within a session.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "assistant"
	Content        string `gorm:"type:text"`
}

// Conversation holds metadata for a chat session.
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	MessageCount   int       `gorm:"default:0"`
	LastActiveAt   time.Time `gorm:"index"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// HistoryStore persists per-session exchanges and renders them back as prompt history.
type HistoryStore interface {
	// CreateSession allocates a new empty session and returns its id.
	CreateSession(ctx context.Context) (string, error)

	// AddExchange appends a query/answer pair, creating the session if it does not exist.
	AddExchange(ctx context.Context, sessionID, query, answer string) error

	// GetConversationHistory returns the most recent exchanges formatted for the
	// system prompt, or "" when the session is unknown or empty.
	GetConversationHistory(ctx context.Context, sessionID string) (string, error)

	// PruneSessions deletes sessions idle since before the cutoff, with their tool
	// traces, and returns how many were removed.
	PruneSessions(ctx context.Context, idleBefore time.Time) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig holds configuration for history stores
type StoreConfig struct {
	Type       string            `json:"type"`        // "sqlite", "postgres", "memory"
	Connection string            `json:"connection"`  // connection string or file path
	MaxHistory int               `json:"max_history"` // exchanges kept in rendered history
	Options    map[string]string `json:"options"`     // see Option* keys
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		MaxHistory: DefaultMaxHistory,
		Options:    make(map[string]string),
	}
}

// WithMaxHistory sets how many exchanges are rendered into history
func (c *StoreConfig) WithMaxHistory(n int) *StoreConfig {
	c.MaxHistory = n
	return c
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	c.Options[key] = value
	return c
}
