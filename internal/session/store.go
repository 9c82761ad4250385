// Package session persists the session-resumption token across client
// restarts.
//
// The token is an opaque identifier the server hands out so a reconnecting
// client can rejoin its prior seat. Storage is a small SQLite database keyed
// by scope (the server URL), so one client binary can hold sessions for
// several servers. Storage failure is never fatal: an unopenable database
// degrades to an in-memory store, which simply means "no persisted session"
// after the process exits.
package session

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store holds session-resumption tokens. A Store with a nil db is an
// in-memory fallback; all methods work either way.
type Store struct {
	db *sql.DB

	mu  sync.Mutex
	mem map[string]string
}

// Open creates or opens the token database at path.
// Idempotent: the schema is applied on every open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect session db: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}

	return &Store{db: db, mem: make(map[string]string)}, nil
}

// Ephemeral creates an in-memory store that forgets everything on exit.
func Ephemeral() *Store {
	return &Store{mem: make(map[string]string)}
}

// OpenOrEphemeral opens the database at path, degrading to an in-memory
// store when the path cannot be opened (read-only disk, disabled storage).
func OpenOrEphemeral(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s, err := Open(path)
	if err != nil {
		log.Warn("session storage unavailable, using in-memory store",
			"path", path, "error", err)
		return Ephemeral()
	}
	return s
}

// Token returns the persisted token for scope, or ("", false) when none
// is stored. Read errors degrade to "no persisted session".
func (s *Store) Token(scope string) (string, bool) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		tok, ok := s.mem[scope]
		return tok, ok
	}
	var tok string
	err := s.db.QueryRow("SELECT token FROM sessions WHERE scope = ?", scope).Scan(&tok)
	if err != nil {
		return "", false
	}
	return tok, true
}

// SetToken stores or replaces the token for scope.
func (s *Store) SetToken(scope, token string) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mem[scope] = token
		return nil
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (scope, token, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(scope) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at",
		scope, token, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}

// Clear drops the token for scope. Clearing a missing scope is a no-op.
func (s *Store) Clear(scope string) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.mem, scope)
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM sessions WHERE scope = ?", scope); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

// Close releases the underlying database. Safe on an in-memory store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
