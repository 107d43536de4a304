package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS conversations (
	key          TEXT PRIMARY KEY,
	record       TEXT NOT NULL,
	last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_last_updated ON conversations(last_updated);`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM conversations WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying conversation %s: %w", key, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decoding conversation %s: %w", key, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (key, record, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, last_updated = excluded.last_updated`,
		key, string(raw), rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("saving conversation %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE last_updated < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired conversations: %w", err)
	}
	return int(n), nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
