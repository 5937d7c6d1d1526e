package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/entrypilot/pkg/utils"
)

// Store persists the queue state as one row of a SQLite table. The whole
// state is written by a single statement, so a crash leaves either the old
// or the new state, never a mix.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS queue_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
);`

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create state schema: %w", err)
	}
	return &Store{db: conn, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted state, or the empty queue when nothing was
// saved yet.
func (s *Store) Load(ctx context.Context) (State, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM queue_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Empty(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load queue state: %w", err)
	}

	var st State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return State{}, fmt.Errorf("decode queue state: %w", err)
	}
	st.Normalize()
	return st, nil
}

// Save overwrites the persisted state.
func (s *Store) Save(ctx context.Context, st State) error {
	st.Normalize()
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode queue state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_state (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save queue state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
