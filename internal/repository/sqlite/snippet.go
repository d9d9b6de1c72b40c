package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// compile-time check that *DB implements repository.SnippetRepository
var _ repository.SnippetRepository = (*DB)(nil)

// CreateSnippet inserts the snippet and attaches tagIDs in one transaction.
// The caller must have checked that every tag belongs to snippet.UserID.
// After it returns, snippet carries its id, timestamps and tags.
func (db *DB) CreateSnippet(ctx context.Context, snippet *model.Snippet, tagIDs []string) error {
	snippet.ID = xid.New().String()
	ts := now()
	snippet.CreatedAt = ts
	snippet.UpdatedAt = ts

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snippets (id, user_id, title, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			snippet.ID, snippet.UserID, snippet.Title, snippet.CreatedAt, snippet.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating snippet: %w", err)
		}
		return attachTags(ctx, tx, snippet.ID, tagIDs)
	})
	if err != nil {
		return err
	}

	tags, err := db.ListTagsForSnippet(ctx, snippet.ID)
	if err != nil {
		return err
	}
	snippet.Tags = tags
	return nil
}

// GetSnippet returns the snippet with its tags, scoped to userID.
// Messages are not loaded.
func (db *DB) GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error) {
	var s model.Snippet
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM snippets
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	tags, err := db.ListTagsForSnippet(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Tags = tags
	return &s, nil
}

// ListSnippets returns the user's snippets, most recently updated first, each
// with its tags.
//
// SEARCH:
// LIKE is case-insensitive for ASCII in SQLite. The query is escaped so that
// "%" and "_" typed by the user match themselves instead of acting as wildcards.
func (db *DB) ListSnippets(ctx context.Context, userID string, filter repository.SnippetFilter) ([]model.Snippet, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM snippets WHERE user_id = ?`
	args := []any{userID}

	if filter.TitleQuery != "" {
		query += ` AND title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(filter.TitleQuery)+"%")
	}
	if len(filter.TagIDs) > 0 {
		query += ` AND id IN (SELECT snippet_id FROM snippet_tags WHERE tag_id IN (` +
			placeholders(len(filter.TagIDs)) + `))`
		for _, tagID := range filter.TagIDs {
			args = append(args, tagID)
		}
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}

	snippets := make([]model.Snippet, 0)
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	// Release the connection before loading tags.
	rows.Close()

	if err := db.loadTags(ctx, snippets); err != nil {
		return nil, err
	}
	return snippets, nil
}

// UpdateSnippet applies a partial update scoped to userID. updated_at is
// always bumped. When upd.TagIDs is set, the tag set is replaced in the same
// transaction; the caller must have checked tag ownership.
func (db *DB) UpdateSnippet(ctx context.Context, userID, id string, upd repository.SnippetUpdate) (*model.Snippet, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE snippets
			 SET title = COALESCE(?, title), updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			nullable(upd.Title), now(), id, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating snippet %s: %w", id, err)
		}
		if err := expectOne(res, apperror.NotFound("snippet", id)); err != nil {
			return err
		}

		if upd.TagIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE snippet_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing tags of snippet %s: %w", id, err)
		}
		return attachTags(ctx, tx, id, *upd.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	return db.GetSnippet(ctx, userID, id)
}

// DeleteSnippet removes the snippet. Messages and tag associations go with it
// through ON DELETE CASCADE.
func (db *DB) DeleteSnippet(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	return expectOne(res, apperror.NotFound("snippet", id))
}

func attachTags(ctx context.Context, q querier, snippetID string, tagIDs []string) error {
	ts := now()
	for _, tagID := range tagIDs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO snippet_tags (snippet_id, tag_id, created_at) VALUES (?, ?, ?)`,
			snippetID, tagID, ts,
		)
		if err != nil {
			return fmt.Errorf("sqlite: attaching tag %s to snippet %s: %w", tagID, snippetID, err)
		}
	}
	return nil
}

// loadTags fills Tags of every snippet with a single query.
func (db *DB) loadTags(ctx context.Context, snippets []model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	index := make(map[string]int, len(snippets))
	args := make([]any, 0, len(snippets))
	for i := range snippets {
		snippets[i].Tags = []model.Tag{}
		index[snippets[i].ID] = i
		args = append(args, snippets[i].ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT st.snippet_id, t.id, t.user_id, t.name, t.color, t.created_at
		 FROM snippet_tags st
		 JOIN tags t ON t.id = st.tag_id
		 WHERE st.snippet_id IN (`+placeholders(len(args))+`)
		 ORDER BY t.name ASC`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading snippet tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snippetID string
		var t model.Tag
		if err := rows.Scan(&snippetID, &t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return fmt.Errorf("sqlite: scanning snippet tag row: %w", err)
		}
		i := index[snippetID]
		snippets[i].Tags = append(snippets[i].Tags, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating snippet tags: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
