package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wiredm-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT    NOT NULL UNIQUE,
	sender_id   TEXT    NOT NULL,
	receiver_id TEXT    NOT NULL,
	text        TEXT    NOT NULL,
	is_read     BOOLEAN NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC);
`

const messageColumns = `id, sender_id, receiver_id, text, is_read, created_at, updated_at`

// SQLiteStore implements store.MessageStore for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Migrate creates the messages table and its indexes if missing.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append persists a new message.
func (s *SQLiteStore) Append(ctx context.Context, senderID, receiverID, text string) (*store.Message, error) {
	trimmed, err := store.ValidateNew(senderID, receiverID, text)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg := &store.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       trimmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, now.UnixNano(), now.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// History retrieves the messages between two users, oldest first.
func (s *SQLiteStore) History(ctx context.Context, userA, userB string, page store.Page) ([]*store.Message, error) {
	pairClause := `((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`
	args := []interface{}{userA, userB, userB, userA}

	var b strings.Builder
	b.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE ` + pairClause)

	if page.Before != "" {
		var createdAt, seq int64
		cursorQuery := `SELECT created_at, seq FROM messages WHERE id = ? AND ` + pairClause
		err := s.db.QueryRowContext(ctx, cursorQuery, append([]interface{}{page.Before}, args...)...).Scan(&createdAt, &seq)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrInvalidCursor
			}
			return nil, fmt.Errorf("query cursor: %w", err)
		}
		b.WriteString(` AND (created_at < ? OR (created_at = ? AND seq < ?))`)
		args = append(args, createdAt, createdAt, seq)
	}

	paged := page.Limit > 0
	if paged {
		// Newest page first, reversed below.
		b.WriteString(` ORDER BY created_at DESC, seq DESC LIMIT ?`)
		args = append(args, page.Limit)
	} else {
		b.WriteString(` ORDER BY created_at ASC, seq ASC`)
	}

	messages, err := s.queryMessages(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}

	if paged {
		for i := range len(messages) / 2 {
			messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
		}
	}
	return messages, nil
}

// AllForUser retrieves every message the user sent or received, newest first.
func (s *SQLiteStore) AllForUser(ctx context.Context, userID string) ([]*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, seq DESC
	`
	return s.queryMessages(ctx, query, userID, userID)
}

// DeleteByID removes a message if the requester is its sender.
func (s *SQLiteStore) DeleteByID(ctx context.Context, messageID, requesterID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var senderID string
	err = tx.QueryRowContext(ctx, `SELECT sender_id FROM messages WHERE id = ?`, messageID).Scan(&senderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("query message: %w", err)
	}
	if senderID != requesterID {
		return store.ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// MarkRead flags messages from counterpartID to readerID as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, readerID, counterpartID string) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = 1, updated_at = ?
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`
	result, err := s.db.ExecContext(ctx, query, s.now().UTC().UnixNano(), counterpartID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return updated, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg                  store.Message
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Read, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		msg.UpdatedAt = time.Unix(0, updatedAt).UTC()
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
