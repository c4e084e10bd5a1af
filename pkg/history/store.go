package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dailydev/searchstream/pkg/session"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no cached session or chunk matches
var ErrNotFound = errors.New("not found in history")

// State summarizes how a cached session ended
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Summary is a row of the session listing
type Summary struct {
	Key       session.Key
	Prompt    string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id    TEXT NOT NULL,
		session_id TEXT NOT NULL,
		prompt     TEXT NOT NULL,
		state      TEXT NOT NULL,
		created_at REAL NOT NULL,
		updated_at REAL NOT NULL,
		snapshot   TEXT NOT NULL,
		PRIMARY KEY (user_id, session_id)
	);

	CREATE INDEX IF NOT EXISTS sessions_user_updated ON sessions (user_id, updated_at);
`

// Store caches session snapshots in SQLite, keyed by user and session id.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the snapshot stored under key
func (s *Store) Save(ctx context.Context, key session.Key, snap *session.Session) error {
	if snap == nil {
		return errors.New("nil session")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var prompt string
	if c := snap.Current(); c != nil {
		prompt = c.Prompt
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, session_id, prompt, state, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			prompt = excluded.prompt,
			state = excluded.state,
			updated_at = excluded.updated_at,
			snapshot = excluded.snapshot
	`, key.UserID, key.SessionID, prompt, stateOf(snap), unixFromTime(createdAt), unixFromTime(s.now()), string(data))
	if err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	return nil
}

// Load returns the snapshot stored under key
func (s *Store) Load(ctx context.Context, key session.Key) (*session.Session, error) {
	return load(ctx, s.db, key)
}

// List returns the user's sessions, most recently updated first. A limit of
// zero or less lists everything.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, prompt, state, created_at, updated_at
		FROM sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum := Summary{Key: session.Key{UserID: userID}}
		var state string
		var createdAt, updatedAt float64
		if err := rows.Scan(&sum.Key.SessionID, &sum.Prompt, &state, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.State = State(state)
		sum.CreatedAt = timeFromUnix(createdAt)
		sum.UpdatedAt = timeFromUnix(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the snapshot stored under key
func (s *Store) Delete(ctx context.Context, key session.Key) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND session_id = ?`, key.UserID, key.SessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Prune removes every session not updated since before and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, unixFromTime(before))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// SetFeedback records the user's rating on a cached chunk
func (s *Store) SetFeedback(ctx context.Context, key session.Key, chunkID string, value session.Feedback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	snap, err := load(ctx, tx, key)
	if err != nil {
		return err
	}

	found := false
	for i := range snap.Chunks {
		if snap.Chunks[i].ID == chunkID {
			snap.Chunks[i].Feedback = value
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: chunk %s in %s", ErrNotFound, chunkID, key)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET snapshot = ?, updated_at = ?
		WHERE user_id = ? AND session_id = ?
	`, string(data), unixFromTime(s.now()), key.UserID, key.SessionID); err != nil {
		return fmt.Errorf("update session %s: %w", key, err)
	}

	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func load(ctx context.Context, q queryer, key session.Key) (*session.Session, error) {
	row := q.QueryRowContext(ctx, `
		SELECT snapshot FROM sessions WHERE user_id = ? AND session_id = ?
	`, key.UserID, key.SessionID)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var snap session.Session
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &snap, nil
}

func stateOf(snap *session.Session) State {
	c := snap.Current()
	switch {
	case c == nil:
		return StateInProgress
	case c.Failed():
		return StateFailed
	case c.CompletedAt != nil:
		return StateCompleted
	default:
		return StateInProgress
	}
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
