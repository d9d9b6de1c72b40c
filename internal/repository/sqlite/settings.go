package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

var _ repository.SettingsRepository = (*DB)(nil)

// GetOrCreateSettings lazily creates the default row. INSERT OR IGNORE keeps
// the "one row per user" invariant when two first reads race.
func (db *DB) GetOrCreateSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	def := model.NewDefaultSettings(userID)
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_settings (user_id, user_name, default_display_mode, custom_ai_names)
		 VALUES (?, ?, ?, '[]')`,
		userID, def.UserName, string(def.DefaultDisplayMode),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating settings for %s: %w", userID, err)
	}

	s := model.UserSettings{UserID: userID}
	var names string
	err = db.conn.QueryRowContext(ctx,
		`SELECT user_name, default_display_mode, custom_ai_names FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&s.UserName, &s.DefaultDisplayMode, &names)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading settings for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(names), &s.CustomAINames); err != nil {
		return nil, fmt.Errorf("sqlite: decoding custom AI names for %s: %w", userID, err)
	}
	if s.CustomAINames == nil {
		s.CustomAINames = []string{}
	}
	return &s, nil
}

// SaveSettings overwrites the whole row.
func (db *DB) SaveSettings(ctx context.Context, settings *model.UserSettings) error {
	return saveSettings(ctx, db.conn, settings)
}

func saveSettings(ctx context.Context, q querier, s *model.UserSettings) error {
	names := s.CustomAINames
	if names == nil {
		names = []string{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("sqlite: encoding custom AI names: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, user_name, default_display_mode, custom_ai_names)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     user_name = excluded.user_name,
		     default_display_mode = excluded.default_display_mode,
		     custom_ai_names = excluded.custom_ai_names`,
		s.UserID, s.UserName, string(s.DefaultDisplayMode), string(encoded),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving settings for %s: %w", s.UserID, err)
	}
	return nil
}
