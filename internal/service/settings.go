package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
	"github.com/samber/lo"
)

// SettingsService handles the per-user preferences row.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *slog.Logger
}

func NewSettingsService(settings repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logger}
}

// UpdateSettingsInput is a partial update; nil fields are left untouched.
type UpdateSettingsInput struct {
	UserName           *string            `json:"userName,omitempty"`
	DefaultDisplayMode *model.DisplayMode `json:"defaultDisplayMode,omitempty"`
	CustomAINames      *[]string          `json:"customAINames,omitempty"`
}

// Get returns the user's settings, creating the defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	settings, err := s.settings.GetOrCreateSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, userID string, in UpdateSettingsInput) (*model.UserSettings, error) {
	return s.modify(ctx, userID, func(settings *model.UserSettings) error {
		if in.UserName != nil {
			name, err := requiredText("userName", "user name", *in.UserName, MaxUserNameLength)
			if err != nil {
				return err
			}
			settings.UserName = name
		}
		if in.DefaultDisplayMode != nil {
			if !in.DefaultDisplayMode.Valid() {
				return invalidDisplayMode()
			}
			settings.DefaultDisplayMode = *in.DefaultDisplayMode
		}
		if in.CustomAINames != nil {
			names, err := normalizeAINames(*in.CustomAINames)
			if err != nil {
				return err
			}
			settings.CustomAINames = names
		}
		return nil
	})
}

func (s *SettingsService) UpdateUserName(ctx context.Context, userID, userName string) (*model.UserSettings, error) {
	return s.Update(ctx, userID, UpdateSettingsInput{UserName: &userName})
}

func (s *SettingsService) UpdateDisplayMode(ctx context.Context, userID string, mode model.DisplayMode) (*model.UserSettings, error) {
	return s.Update(ctx, userID, UpdateSettingsInput{DefaultDisplayMode: &mode})
}

// AddCustomAI appends to the legacy name list.
func (s *SettingsService) AddCustomAI(ctx context.Context, userID, aiName string) (*model.UserSettings, error) {
	return s.modify(ctx, userID, func(settings *model.UserSettings) error {
		names, err := normalizeAINames(append(slices.Clone(settings.CustomAINames), aiName))
		if err != nil {
			return err
		}
		settings.CustomAINames = names
		return nil
	})
}

// RemoveCustomAI drops aiName from the legacy list. Removing a name that is
// not there is a no-op.
func (s *SettingsService) RemoveCustomAI(ctx context.Context, userID, aiName string) (*model.UserSettings, error) {
	aiName = strings.TrimSpace(aiName)
	return s.modify(ctx, userID, func(settings *model.UserSettings) error {
		settings.CustomAINames = lo.Without(settings.CustomAINames, aiName)
		return nil
	})
}

// modify loads, changes and saves the settings row. fn returning an error
// aborts without writing.
func (s *SettingsService) modify(ctx context.Context, userID string, fn func(*model.UserSettings) error) (*model.UserSettings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(settings); err != nil {
		return nil, err
	}
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		s.logger.Error("failed to save settings",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving settings: %w", err)
	}

	s.logger.Info("settings updated", slog.String("userID", userID))
	return settings, nil
}

// normalizeAINames trims each name and enforces the list rules: 1..50
// characters, no duplicates, at most MaxCustomAINames entries.
func normalizeAINames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name, err := requiredText("customAINames", "AI name", raw, MaxAINameLength)
		if err != nil {
			return nil, err
		}
		if lo.Contains(out, name) {
			return nil, apperror.DuplicateName("custom AI", name)
		}
		out = append(out, name)
	}
	if len(out) > MaxCustomAINames {
		return nil, apperror.LimitExceeded("custom AIs", MaxCustomAINames)
	}
	return out, nil
}

func invalidDisplayMode() error {
	return apperror.ValidationFailed("displayMode", `displayMode must be "markdown" or "plain"`)
}
