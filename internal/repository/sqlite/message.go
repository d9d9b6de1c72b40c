package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

var _ repository.MessageRepository = (*DB)(nil)

const messageColumns = `id, snippet_id, sender, sender_type, content, display_mode, position, created_at`

func scanMessage(row interface{ Scan(...any) error }, m *model.Message) error {
	return row.Scan(&m.ID, &m.SnippetID, &m.Sender, &m.SenderType, &m.Content,
		&m.DisplayMode, &m.Position, &m.CreatedAt)
}

// CreateMessage appends msg to its snippet.
//
// POSITION:
// The next position is read inside the same transaction as the INSERT, and
// the single-connection pool serializes transactions, so two concurrent
// creates cannot pick the same value. UNIQUE(snippet_id, position) is the
// backstop if that ever changes.
func (db *DB) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = xid.New().String()
	msg.CreatedAt = now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE snippet_id = ?`,
			msg.SnippetID,
		).Scan(&msg.Position)
		if err != nil {
			return fmt.Errorf("sqlite: reading next position for snippet %s: %w", msg.SnippetID, err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE snippets SET updated_at = ? WHERE id = ?`,
			msg.CreatedAt, msg.SnippetID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: touching snippet %s: %w", msg.SnippetID, err)
		}
		if err := expectOne(res, apperror.NotFound("snippet", msg.SnippetID)); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.SnippetID, msg.Sender, string(msg.SenderType), msg.Content,
			nullable(msg.DisplayMode), msg.Position, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating message: %w", err)
		}
		return nil
	})
}

// GetMessage returns the message together with the owner of its snippet.
// Ownership is compared by the caller.
func (db *DB) GetMessage(ctx context.Context, id string) (*model.Message, string, error) {
	var m model.Message
	var ownerID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT m.id, m.snippet_id, m.sender, m.sender_type, m.content, m.display_mode,
		        m.position, m.created_at, s.user_id
		 FROM messages m
		 JOIN snippets s ON s.id = m.snippet_id
		 WHERE m.id = ?`,
		id,
	).Scan(&m.ID, &m.SnippetID, &m.Sender, &m.SenderType, &m.Content,
		&m.DisplayMode, &m.Position, &m.CreatedAt, &ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", apperror.NotFound("message", id)
		}
		return nil, "", fmt.Errorf("sqlite: getting message %s: %w", id, err)
	}
	return &m, ownerID, nil
}

// ListMessages returns the snippet's messages in position order.
func (db *DB) ListMessages(ctx context.Context, snippetID string) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE snippet_id = ? ORDER BY position ASC`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}
	return messages, nil
}

// UpdateMessage writes only the fields set in upd. Nil fields bind as NULL
// and COALESCE keeps the stored value.
func (db *DB) UpdateMessage(ctx context.Context, id string, upd repository.MessageUpdate) (*model.Message, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages
		 SET content      = COALESCE(?, content),
		     display_mode = COALESCE(?, display_mode),
		     sender_type  = COALESCE(?, sender_type),
		     sender       = COALESCE(?, sender)
		 WHERE id = ?`,
		nullable(upd.Content), nullable(upd.DisplayMode), nullable(upd.SenderType), nullable(upd.Sender), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating message %s: %w", id, err)
	}
	if err := expectOne(res, apperror.NotFound("message", id)); err != nil {
		return nil, err
	}

	var m model.Message
	err = scanMessage(db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id), &m)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reloading message %s: %w", id, err)
	}
	return &m, nil
}

// DeleteMessage removes one message. Positions of the others are left alone.
func (db *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting message %s: %w", id, err)
	}
	return expectOne(res, apperror.NotFound("message", id))
}
