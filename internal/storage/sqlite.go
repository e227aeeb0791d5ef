package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
)

// schemaVersion is the latest schema version.
// Bump this when adding migrations.
const schemaVersion = 1

// SQLite stores keys in a single kv table inside baseDir/tabengine.db.
type SQLite struct {
	db  *sql.DB
	log *logging.Logger
}

// NewSQLite opens (creating if needed) the store under baseDir.
func NewSQLite(baseDir string, logger *logging.Logger) (*SQLite, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0o700)

	dbPath := filepath.Join(baseDir, "tabengine.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after the file exists (best-effort)
	_ = os.Chmod(dbPath, 0o600)

	logger.Info("SQLite store ready", zap.String("path", dbPath))
	return &SQLite{db: db, log: logger}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS kv (
		  key        TEXT PRIMARY KEY,
		  value      BLOB NOT NULL,
		  updated_at INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("storage: migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("storage: verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("storage: expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("storage: set user_version: %w", err)
	}
	return nil
}

// Get reads the value stored at key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the value.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	return nil
}

// Delete removes the value. Missing keys are fine.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// List returns keys matching the doublestar pattern, sorted.
func (s *SQLite) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", pattern, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: list %q: %w", pattern, err)
		}
		matched, err := matchKey(pattern, key)
		if err != nil {
			return nil, fmt.Errorf("storage: list %q: %w", pattern, err)
		}
		if matched {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", pattern, err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	s.log.Info("SQLite store closed")
	return s.db.Close()
}
