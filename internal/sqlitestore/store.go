// Package sqlitestore provides a persistent revdom.SessionStore backed by
// SQLite, adapted from the teacher's cmd/lvt/internal/migration runner:
// the same goose-over-modernc.org/sqlite wiring, generalized into a
// library the reference server opens at startup rather than a one-shot CLI
// command.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a revdom.SessionStore persisted to a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path, retrying the initial connection
// with exponential backoff (the teacher's migration runner assumes the
// file is always immediately available; a long-lived server also has to
// tolerate the file living on a slow-to-mount volume at boot), then brings
// the schema up to date via goose.
func Open(ctx context.Context, path string) (*Store, error) {
	var db *sql.DB
	backoff := retry.WithMaxRetries(5, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, openErr := sql.Open("sqlite", path)
		if openErr != nil {
			return retry.RetryableError(openErr)
		}
		if pingErr := conn.PingContext(ctx); pingErr != nil {
			_ = conn.Close()
			return retry.RetryableError(pingErr)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite session store at %q: %w", path, err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("running session store migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// GetState implements revdom.SessionStore.
func (s *Store) GetState(sessionID string) (map[string]any, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&blob)
	switch {
	case err == sql.ErrNoRows:
		return map[string]any{}, nil
	case err != nil:
		return nil, fmt.Errorf("loading session %q: %w", sessionID, err)
	}

	state := make(map[string]any)
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decoding session %q state: %w", sessionID, err)
	}
	return state, nil
}

// UpdateState implements revdom.SessionStore: it merges patch into the
// session's persisted state mapping, creating the row if absent.
func (s *Store) UpdateState(sessionID string, patch map[string]any) error {
	state, err := s.GetState(sessionID)
	if err != nil {
		return err
	}
	for k, v := range patch {
		state[k] = v
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %q state: %w", sessionID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		sessionID, blob, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving session %q: %w", sessionID, err)
	}
	return nil
}

// Delete implements revdom.SessionStore.
func (s *Store) Delete(sessionID string) {
	_, _ = s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
}
