package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the file name of the settings database inside the data directory.
const DatabaseFile = "moodify.db"

// SQLiteStore persists settings as a JSON document in a key/value table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the settings database in dataDir.
func Open(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("create data dir: %w", err)}
	}
	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("open sqlite: %w", err)}
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("sqlite pragma failed: %w", err)}
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate() error {
	const q = `CREATE TABLE IF NOT EXISTS storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(q); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

// Load reads the settings record. ErrNotFound is returned when none has been saved.
func (s *SQLiteStore) Load(ctx context.Context) (Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = ?`, StorageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, &StorageError{Op: "load", Err: err}
	}

	out := Defaults()
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Settings{}, &StorageError{Op: "load", Err: fmt.Errorf("decode settings: %w", err)}
	}
	return out, nil
}

// Save writes the settings record, replacing any previous one.
func (s *SQLiteStore) Save(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return &StorageError{Op: "save", Err: fmt.Errorf("encode settings: %w", err)}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO storage(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, StorageKey, string(data))
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
