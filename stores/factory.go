package stores

import (
	"fmt"

	"gorm.io/gorm"
)

// NewHistoryStore creates a history store based on the configuration
func NewHistoryStore(config *StoreConfig) (HistoryStore, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStore(config)
	case "postgres":
		return NewPostgresStore(config)
	case "memory", "":
		return NewMemoryStore(config.MaxHistory), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewTraceStoreFor returns a trace store sharing the history store's database,
// or nil when the history store is not database backed.
func NewTraceStoreFor(store HistoryStore) (TraceStore, error) {
	type dbBacked interface{ DB() *gorm.DB }
	backed, ok := store.(dbBacked)
	if !ok {
		return nil, nil
	}
	traces, err := NewGORMTraceStore(backed.DB())
	if err != nil {
		return nil, err
	}
	return traces, nil
}
