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

var _ repository.AIProviderRepository = (*DB)(nil)

const providerColumns = `id, user_id, name, icon, is_default, created_at`

func scanProvider(row interface{ Scan(...any) error }, p *model.AIProvider) error {
	return row.Scan(&p.ID, &p.UserID, &p.Name, &p.Icon, &p.IsDefault, &p.CreatedAt)
}

// ListDefaultProviders returns the shared presets in insertion order.
func (db *DB) ListDefaultProviders(ctx context.Context) ([]model.AIProvider, error) {
	return db.queryProviders(ctx,
		`SELECT `+providerColumns+` FROM ai_providers
		 WHERE user_id IS NULL AND is_default = 1
		 ORDER BY created_at ASC, rowid ASC`)
}

func (db *DB) ListCustomProviders(ctx context.Context, userID string) ([]model.AIProvider, error) {
	return db.queryProviders(ctx,
		`SELECT `+providerColumns+` FROM ai_providers
		 WHERE user_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID)
}

func (db *DB) GetVisibleProvider(ctx context.Context, userID, id string) (*model.AIProvider, error) {
	var p model.AIProvider
	err := scanProvider(db.conn.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM ai_providers
		 WHERE id = ? AND (user_id = ? OR user_id IS NULL)`,
		id, userID), &p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("AI provider", id)
		}
		return nil, fmt.Errorf("sqlite: getting AI provider %s: %w", id, err)
	}
	return &p, nil
}

// FindCustomProviderByName returns nil, nil when the user has no custom
// provider with that name.
func (db *DB) FindCustomProviderByName(ctx context.Context, userID, name string) (*model.AIProvider, error) {
	var p model.AIProvider
	err := scanProvider(db.conn.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM ai_providers WHERE user_id = ? AND name = ?`,
		userID, name), &p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding AI provider %q: %w", name, err)
	}
	return &p, nil
}

func (db *DB) CreateProvider(ctx context.Context, p *model.AIProvider) error {
	p.ID = xid.New().String()
	p.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ai_providers (`+providerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, nullable(p.UserID), p.Name, p.Icon, p.IsDefault, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.DuplicateName("AI provider", p.Name)
	}
	if err != nil {
		return fmt.Errorf("sqlite: creating AI provider: %w", err)
	}
	return nil
}

// UpdateCustomProvider only matches rows owned by userID, so defaults and
// other users' providers report NotFound here. The service tells them apart.
func (db *DB) UpdateCustomProvider(ctx context.Context, userID, id, name string, icon *string) (*model.AIProvider, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE ai_providers SET name = ?, icon = COALESCE(?, icon)
		 WHERE id = ? AND user_id = ?`,
		name, nullable(icon), id, userID,
	)
	if isUniqueViolation(err) {
		return nil, apperror.DuplicateName("AI provider", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating AI provider %s: %w", id, err)
	}
	if err := expectOne(res, apperror.NotFound("AI provider", id)); err != nil {
		return nil, err
	}
	return db.GetVisibleProvider(ctx, userID, id)
}

func (db *DB) DeleteCustomProvider(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM ai_providers WHERE id = ? AND user_id = ? AND is_default = 0`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting AI provider %s: %w", id, err)
	}
	return expectOne(res, apperror.NotFound("AI provider", id))
}

// InsertDefaultIfMissing relies on the partial unique index over default
// names: a second insert of the same name is ignored, even when two callers
// race.
func (db *DB) InsertDefaultIfMissing(ctx context.Context, name, icon string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO ai_providers (`+providerColumns+`) VALUES (?, NULL, ?, ?, 1, ?)`,
		xid.New().String(), name, icon, now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting default AI provider %q: %w", name, err)
	}
	return nil
}

// ListActiveAIs returns every UserActiveAI row of the user, active or not,
// with its provider attached.
func (db *DB) ListActiveAIs(ctx context.Context, userID string) ([]model.UserActiveAI, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT ua.id, ua.user_id, ua.ai_provider_id, ua.is_active,
		        p.id, p.user_id, p.name, p.icon, p.is_default, p.created_at
		 FROM user_active_ais ua
		 JOIN ai_providers p ON p.id = ua.ai_provider_id
		 WHERE ua.user_id = ?
		 ORDER BY p.is_default DESC, p.created_at ASC, p.rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active AIs: %w", err)
	}
	defer rows.Close()

	result := make([]model.UserActiveAI, 0)
	for rows.Next() {
		var ua model.UserActiveAI
		var p model.AIProvider
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.AIProviderID, &ua.IsActive,
			&p.ID, &p.UserID, &p.Name, &p.Icon, &p.IsDefault, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning active AI row: %w", err)
		}
		ua.AIProvider = &p
		result = append(result, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating active AIs: %w", err)
	}
	return result, nil
}

// UpsertActiveAI creates or updates the (user, provider) row. It never deletes.
func (db *DB) UpsertActiveAI(ctx context.Context, userID, providerID string, active bool) (*model.UserActiveAI, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_active_ais (id, user_id, ai_provider_id, is_active)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, ai_provider_id) DO UPDATE SET is_active = excluded.is_active`,
		xid.New().String(), userID, providerID, active,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: toggling AI provider %s: %w", providerID, err)
	}

	ua := model.UserActiveAI{UserID: userID, AIProviderID: providerID}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, is_active FROM user_active_ais WHERE user_id = ? AND ai_provider_id = ?`,
		userID, providerID,
	).Scan(&ua.ID, &ua.IsActive)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading active AI row: %w", err)
	}
	return &ua, nil
}

func (db *DB) queryProviders(ctx context.Context, query string, args ...any) ([]model.AIProvider, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing AI providers: %w", err)
	}
	defer rows.Close()

	providers := make([]model.AIProvider, 0)
	for rows.Next() {
		var p model.AIProvider
		if err := scanProvider(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning AI provider row: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating AI providers: %w", err)
	}
	return providers, nil
}
