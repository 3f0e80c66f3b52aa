package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/qqrelay/internal/session"
	"github.com/flemzord/qqrelay/pkg/message"
	"github.com/google/uuid"
)

// Store implements session.Store on SQLite. Session rows carry the latest
// update time; every recorded inbound context is also appended to
// inbound_messages for history and auditing.
type Store struct {
	db *sql.DB
}

// Compile-time interface guard.
var _ session.Store = (*Store)(nil)

func newStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpdatedAt implements session.Store.
func (s *Store) UpdatedAt(ctx context.Context, storePath, sessionKey string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		"SELECT updated_at FROM sessions WHERE store_path = ? AND session_key = ?",
		storePath, sessionKey,
	).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite: read session %s: %w", sessionKey, err)
	}
	return time.UnixMilli(ms), true, nil
}

// RecordInbound implements session.Store.
func (s *Store) RecordInbound(ctx context.Context, storePath, sessionKey string, msg message.InboundContext) error {
	if sessionKey == "" {
		return session.ErrEmptySessionKey
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("sqlite: encode inbound context: %w", err)
	}
	ts := session.MessageTime(msg).UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO inbound_messages (id, store_path, session_key, message_sid, sender_id, chat_type, raw_body, context, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), storePath, sessionKey, msg.MessageSid, msg.SenderID,
		string(msg.ChatType), msg.RawBody, string(raw), ts,
	); err != nil {
		return fmt.Errorf("sqlite: insert inbound message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (store_path, session_key, updated_at, message_count, last_context)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT (store_path, session_key) DO UPDATE SET
			updated_at    = MAX(sessions.updated_at, excluded.updated_at),
			message_count = sessions.message_count + 1,
			last_context  = excluded.last_context`,
		storePath, sessionKey, ts, string(raw),
	); err != nil {
		return fmt.Errorf("sqlite: upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit inbound contexts of a session, oldest first.
func (s *Store) Recent(ctx context.Context, storePath, sessionKey string, limit int) ([]message.InboundContext, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT context FROM (
			SELECT context, timestamp, rowid FROM inbound_messages
			WHERE store_path = ? AND session_key = ?
			ORDER BY timestamp DESC, rowid DESC LIMIT ?
		) ORDER BY timestamp ASC, rowid ASC`,
		storePath, sessionKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []message.InboundContext
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan history: %w", err)
		}
		var msg message.InboundContext
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("sqlite: decode history: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Prune deletes history and sessions not updated since olderThan. It
// returns the number of sessions removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	cutoff := olderThan.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM inbound_messages WHERE timestamp < ?", cutoff); err != nil {
		return 0, fmt.Errorf("sqlite: prune history: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return int(n), nil
}

// Len implements session.Store. Errors are reported as zero.
func (s *Store) Len() int {
	var n int
	if err := s.db.QueryRowContext(context.Background(), "SELECT count(*) FROM sessions").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
