package stores

import (
	"path/filepath"
	"testing"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(" busy_timeout=5000,,journal_mode = wal ")
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts[OptionBusyTimeout] != "5000" || opts[OptionJournalMode] != "wal" {
		t.Errorf("unexpected options %v", opts)
	}
	if _, err := ParseOptions("=5"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestSQLiteStoreHonoursOptions(t *testing.T) {
	config := NewStoreConfig("sqlite", filepath.Join(t.TempDir(), "opts.sqlite")).
		WithOption(OptionBusyTimeout, "4321").
		WithOption(OptionJournalMode, "wal").
		WithOption(OptionMaxOpenConns, "1")
	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var timeout int
	if err := store.DB().Raw("PRAGMA busy_timeout").Scan(&timeout).Error; err != nil {
		t.Fatal(err)
	}
	if timeout != 4321 {
		t.Errorf("busy_timeout = %d, want 4321", timeout)
	}

	var mode string
	if err := store.DB().Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	sqlDB, err := store.DB().DB()
	if err != nil {
		t.Fatal(err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("max open conns = %d, want 1", got)
	}
}

func TestSQLiteStoreRejectsBadOptions(t *testing.T) {
	tests := map[string]*StoreConfig{
		"busy timeout": NewStoreConfig("sqlite", filepath.Join(t.TempDir(), "a.sqlite")).WithOption(OptionBusyTimeout, "soon"),
		"journal mode": NewStoreConfig("sqlite", filepath.Join(t.TempDir(), "b.sqlite")).WithOption(OptionJournalMode, "fast"),
		"pool size":    NewStoreConfig("sqlite", filepath.Join(t.TempDir(), "c.sqlite")).WithOption(OptionMaxIdleConns, "-1"),
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			if store, err := NewSQLiteStore(config); err == nil {
				store.Close()
				t.Fatal("expected error")
			}
		})
	}
}
