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

var _ repository.TagRepository = (*DB)(nil)

const tagColumns = `id, user_id, name, color, created_at`

func scanTag(row interface{ Scan(...any) error }, t *model.Tag) error {
	return row.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
}

func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	tag.ID = xid.New().String()
	tag.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?)`,
		tag.ID, tag.UserID, tag.Name, nullable(tag.Color), tag.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.DuplicateName("tag", tag.Name)
	}
	if err != nil {
		return fmt.Errorf("sqlite: creating tag: %w", err)
	}
	return nil
}

func (db *DB) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	var t model.Tag
	err := scanTag(db.conn.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, id, userID), &t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}
	return &t, nil
}

// FindTagByName returns nil, nil when the user has no tag with that name.
func (db *DB) FindTagByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	var t model.Tag
	err := scanTag(db.conn.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`, userID, name), &t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding tag %q: %w", name, err)
	}
	return &t, nil
}

// ListTags returns the user's tags, newest first.
func (db *DB) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	return db.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
}

func (db *DB) CountTags(ctx context.Context, userID string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting tags: %w", err)
	}
	return n, nil
}

func (db *DB) UpdateTag(ctx context.Context, userID, id string, upd repository.TagUpdate) (*model.Tag, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = COALESCE(?, name), color = COALESCE(?, color)
		 WHERE id = ? AND user_id = ?`,
		nullable(upd.Name), nullable(upd.Color), id, userID,
	)
	if isUniqueViolation(err) && upd.Name != nil {
		return nil, apperror.DuplicateName("tag", *upd.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating tag %s: %w", id, err)
	}
	if err := expectOne(res, apperror.NotFound("tag", id)); err != nil {
		return nil, err
	}
	return db.GetTag(ctx, userID, id)
}

// DeleteTag detaches the tag from every snippet, then deletes it.
func (db *DB) DeleteTag(ctx context.Context, userID, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM tags WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
		if err == sql.ErrNoRows {
			return apperror.NotFound("tag", id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking tag %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE tag_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: detaching tag %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
		}
		return nil
	})
}

// AddTagToSnippet is idempotent: attaching an attached tag returns the
// existing association unchanged.
func (db *DB) AddTagToSnippet(ctx context.Context, snippetID, tagID string) (*model.SnippetTag, error) {
	if err := attachTags(ctx, db.conn, snippetID, []string{tagID}); err != nil {
		return nil, err
	}

	st := model.SnippetTag{SnippetID: snippetID, TagID: tagID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT created_at FROM snippet_tags WHERE snippet_id = ? AND tag_id = ?`,
		snippetID, tagID,
	).Scan(&st.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading snippet tag: %w", err)
	}
	return &st, nil
}

func (db *DB) RemoveTagFromSnippet(ctx context.Context, snippetID, tagID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippet_tags WHERE snippet_id = ? AND tag_id = ?`, snippetID, tagID)
	if err != nil {
		return fmt.Errorf("sqlite: removing tag %s from snippet %s: %w", tagID, snippetID, err)
	}
	return expectOne(res, apperror.NotFound("snippet tag", snippetID+"/"+tagID))
}

// ListTagsForSnippet returns the snippet's tags ordered by name.
func (db *DB) ListTagsForSnippet(ctx context.Context, snippetID string) ([]model.Tag, error) {
	return db.queryTags(ctx,
		`SELECT t.id, t.user_id, t.name, t.color, t.created_at
		 FROM snippet_tags st
		 JOIN tags t ON t.id = st.tag_id
		 WHERE st.snippet_id = ?
		 ORDER BY t.name ASC`,
		snippetID)
}

func (db *DB) queryTags(ctx context.Context, query string, args ...any) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := scanTag(rows, &t); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}
