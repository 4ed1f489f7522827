// Package store persists turn transcripts to SQLite so runs can be
// reviewed after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"meebo/internal/logging"
)

// TurnRecord is one persisted LLM turn.
type TurnRecord struct {
	ID        string
	Prompt    string
	Thoughts  string
	RawText   string
	Err       string
	Actions   []ActionRecord
	CreatedAt time.Time
}

// ActionRecord is one dispatched action within a turn.
type ActionRecord struct {
	Tool   string
	Key    string
	Err    string
	TookMS int64
}

// Store wraps the turn transcript database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	prompt     TEXT NOT NULL,
	thoughts   TEXT NOT NULL DEFAULT '',
	raw_text   TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS turn_actions (
	turn_id  TEXT NOT NULL REFERENCES turns(id),
	seq      INTEGER NOT NULL,
	tool     TEXT NOT NULL,
	key      TEXT NOT NULL,
	error    TEXT NOT NULL DEFAULT '',
	took_ms  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (turn_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
`

// Open opens (creating if needed) the turn store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("turn store open at %s", path)
	return &Store{db: db}, nil
}

// SaveTurn persists one turn and its dispatched actions.
func (s *Store) SaveTurn(ctx context.Context, rec TurnRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (id, prompt, thoughts, raw_text, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Prompt, rec.Thoughts, rec.RawText, rec.Err, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	for i, a := range rec.Actions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turn_actions (turn_id, seq, tool, key, error, took_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, a.Tool, a.Key, a.Err, a.TookMS)
		if err != nil {
			return fmt.Errorf("failed to insert action %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	logging.StoreDebug("saved turn %s with %d action(s)", rec.ID, len(rec.Actions))
	return nil
}

// RecentTurns returns up to limit turns, newest first, with actions.
func (s *Store) RecentTurns(ctx context.Context, limit int) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, thoughts, raw_text, error, created_at
		 FROM turns ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.Thoughts, &rec.RawText, &rec.Err, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range turns {
		actions, err := s.turnActions(ctx, turns[i].ID)
		if err != nil {
			return nil, err
		}
		turns[i].Actions = actions
	}
	return turns, nil
}

func (s *Store) turnActions(ctx context.Context, turnID string) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, key, error, took_ms FROM turn_actions
		 WHERE turn_id = ? ORDER BY seq`, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []ActionRecord
	for rows.Next() {
		var a ActionRecord
		if err := rows.Scan(&a.Tool, &a.Key, &a.Err, &a.TookMS); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
