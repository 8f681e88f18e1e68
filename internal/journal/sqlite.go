// File: internal/journal/sqlite.go
package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/smartdevs17/escrow-admin/pkg/utils"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(config *StoreConfig) *SQLiteStore {
	return &SQLiteStore{sqlStore{
		config: config,
		logger: utils.ComponentLogger("journal"),
		dialect: dialect{
			name:   "SQLite",
			driver: "sqlite",
			migrationTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				description TEXT NOT NULL,
				applied_at TEXT NOT NULL
			)`,
			migrations:  GetSQLiteMigrations(),
			placeholder: func(int) string { return "?" },
			// Fixed-width UTC text keeps lexical order equal to time order.
			encodeTime: func(t time.Time) interface{} { return t.UTC().Format(sqliteTimeLayout) },
		},
	}}
}

// Connect establishes database connection
func (s *SQLiteStore) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	if err := s.open(s.config.ConnectionString); err != nil {
		return err
	}

	// Enable WAL mode for better concurrency
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to set busy timeout", err.Error())
	}

	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite journal connected")
	return nil
}
