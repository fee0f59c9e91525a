package stores

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Store options understood by the database-backed stores.
const (
	OptionBusyTimeout  = "busy_timeout"   // sqlite: milliseconds to wait on a locked database
	OptionJournalMode  = "journal_mode"   // sqlite: delete, truncate, persist, memory, wal, off
	OptionMaxOpenConns = "max_open_conns" // sqlite, postgres
	OptionMaxIdleConns = "max_idle_conns" // sqlite, postgres
)

var journalModes = map[string]bool{
	"delete": true, "truncate": true, "persist": true, "memory": true, "wal": true, "off": true,
}

// ParseOptions reads a comma separated list of key=value pairs.
func ParseOptions(raw string) (map[string]string, error) {
	opts := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid store option %q, expected key=value", pair)
		}
		opts[key] = strings.TrimSpace(value)
	}
	return opts, nil
}

func intOption(opts map[string]string, key string) (int, bool, error) {
	raw, ok := opts[key]
	if !ok || raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("store option %s must be a non-negative integer, got %q", key, raw)
	}
	return n, true, nil
}

// sqliteDSN appends the driver parameters for busy_timeout and journal_mode.
func sqliteDSN(path string, opts map[string]string) (string, error) {
	params := url.Values{}
	if n, ok, err := intOption(opts, OptionBusyTimeout); err != nil {
		return "", err
	} else if ok {
		params.Set("_busy_timeout", strconv.Itoa(n))
	}
	if mode, ok := opts[OptionJournalMode]; ok && mode != "" {
		mode = strings.ToLower(mode)
		if !journalModes[mode] {
			return "", fmt.Errorf("unsupported sqlite journal_mode %q", mode)
		}
		params.Set("_journal_mode", strings.ToUpper(mode))
	}
	if len(params) == 0 {
		return path, nil
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode(), nil
}

// applyPoolOptions sets connection pool limits on the underlying sql.DB.
func applyPoolOptions(db *gorm.DB, opts map[string]string) error {
	maxOpen, hasOpen, err := intOption(opts, OptionMaxOpenConns)
	if err != nil {
		return err
	}
	maxIdle, hasIdle, err := intOption(opts, OptionMaxIdleConns)
	if err != nil {
		return err
	}
	if !hasOpen && !hasIdle {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if hasOpen {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if hasIdle {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	return nil
}
