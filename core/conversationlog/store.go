// Package conversationlog persists finalised transcript turns so past
// assistant sessions can be reviewed after the panel is closed. It is an
// optional write-behind sink; the session state machine never waits on it.
package conversationlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pantrypal/assistant-core/core/assist"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed conversation log.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writes to avoid SQLITE_BUSY
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps readers (the log command) from blocking session writes.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// AppendMessage records one finalised transcript entry for a session.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg assist.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, now,
	); err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Text, now,
	); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Messages returns a session's transcript in insertion order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]assist.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []assist.Message
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, assist.Message{Role: assist.Role(role), Text: text})
	}
	return messages, rows.Err()
}

// SessionSummary describes one stored session for listing.
type SessionSummary struct {
	ID        string
	StartedAt time.Time
	Messages  int
	// FirstUtterance is the session's opening user message, used as a
	// one-line summary.
	FirstUtterance string
}

// ListSessions enumerates stored sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.started_at, COUNT(m.id),
			COALESCE((SELECT text FROM messages
				WHERE session_id = s.session_id AND role = ?
				ORDER BY id LIMIT 1), '')
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC`,
		string(assist.RoleUser),
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var startedAt int64
		if err := rows.Scan(&summary.ID, &startedAt, &summary.Messages, &summary.FirstUtterance); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.StartedAt = time.Unix(startedAt, 0)
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
