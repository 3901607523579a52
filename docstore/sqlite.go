package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	code       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore persists documents in a SQLite database so sessions survive a
// server restart. Change notifications are delivered in-process.
type SQLiteStore struct {
	db *sql.DB
	// mu orders writes with their notifications.
	mu   sync.Mutex
	subs *subscribers
}

// OpenSQLite opens (and creates if missing) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps in-memory databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened document database")
	return &SQLiteStore{db: db, subs: newSubscribers()}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, code string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE code = ?`, code).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", code, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", code, err)
	}
	return doc, nil
}

func (s *SQLiteStore) Set(ctx context.Context, code string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", code, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (code, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(code) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		code, string(body),
	)
	if err != nil {
		return fmt.Errorf("set document %s: %w", code, err)
	}
	s.subs.publish(code, doc)
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, code string, fn func(Document)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Get(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	sub, unsubscribe := s.subs.add(code, fn)
	if err == nil {
		sub.push(doc)
	}
	return unsubscribe, nil
}
