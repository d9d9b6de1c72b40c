package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// DefaultIcon is used for custom providers created without one.
const DefaultIcon = "bot"

// PresetProvider is one entry of the shared default list.
type PresetProvider struct {
	Name string
	Icon string
}

// DefaultProviders is seeded by EnsureDefaults, in this order.
var DefaultProviders = []PresetProvider{
	{Name: "ChatGPT", Icon: "bot"},
	{Name: "Claude", Icon: "brain"},
	{Name: "Gemini", Icon: "sparkles"},
	{Name: "Copilot", Icon: "code"},
}

// AIProviderService handles the AI sender identities a user can pick from.
type AIProviderService struct {
	access    *Access
	providers repository.AIProviderRepository
	logger    *slog.Logger
}

func NewAIProviderService(access *Access, providers repository.AIProviderRepository, logger *slog.Logger) *AIProviderService {
	return &AIProviderService{access: access, providers: providers, logger: logger}
}

// GetAll returns the defaults followed by the user's own providers, each
// group oldest first.
func (s *AIProviderService) GetAll(ctx context.Context, userID string) ([]model.AIProvider, error) {
	defaults, err := s.providers.ListDefaultProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing default AI providers: %w", err)
	}
	custom, err := s.providers.ListCustomProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing custom AI providers: %w", err)
	}
	return append(defaults, custom...), nil
}

func (s *AIProviderService) GetDefaults(ctx context.Context) ([]model.AIProvider, error) {
	return s.providers.ListDefaultProviders(ctx)
}

// EnsureDefaults seeds every preset that is missing and returns the defaults.
// Calling it any number of times leaves one row per preset name.
func (s *AIProviderService) EnsureDefaults(ctx context.Context) ([]model.AIProvider, error) {
	for _, p := range DefaultProviders {
		if err := s.providers.InsertDefaultIfMissing(ctx, p.Name, p.Icon); err != nil {
			s.logger.Error("failed to seed default AI provider",
				slog.String("name", p.Name),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("seeding default AI providers: %w", err)
		}
	}
	return s.providers.ListDefaultProviders(ctx)
}

func (s *AIProviderService) CreateCustom(ctx context.Context, userID, name string, icon *string) (*model.AIProvider, error) {
	name, err := requiredText("name", "AI name", name, MaxAINameLength)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, userID, name, ""); err != nil {
		return nil, err
	}

	p := &model.AIProvider{
		UserID: &userID,
		Name:   name,
		Icon:   iconOrDefault(icon),
	}
	if err := s.providers.CreateProvider(ctx, p); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to create AI provider",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating AI provider: %w", err)
	}

	s.logger.Info("AI provider created", slog.String("id", p.ID), slog.String("name", name))
	return p, nil
}

// Update renames a custom provider. Defaults are Forbidden; other users'
// providers are NotFound.
func (s *AIProviderService) Update(ctx context.Context, userID, id, name string, icon *string) (*model.AIProvider, error) {
	id, err := requiredID("id", id)
	if err != nil {
		return nil, err
	}
	name, err = requiredText("name", "AI name", name, MaxAINameLength)
	if err != nil {
		return nil, err
	}
	if icon != nil {
		trimmed := strings.TrimSpace(*icon)
		if trimmed == "" {
			icon = nil
		} else {
			icon = &trimmed
		}
	}

	if _, err := s.access.WritableProvider(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, userID, name, id); err != nil {
		return nil, err
	}

	p, err := s.providers.UpdateCustomProvider(ctx, userID, id, name, icon)
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI provider updated", slog.String("id", id))
	return p, nil
}

func (s *AIProviderService) Delete(ctx context.Context, userID, id string) error {
	id, err := requiredID("id", id)
	if err != nil {
		return err
	}
	if _, err := s.access.WritableProvider(ctx, userID, id); err != nil {
		return err
	}
	if err := s.providers.DeleteCustomProvider(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("AI provider deleted", slog.String("id", id))
	return nil
}

// GetActiveAIs returns every toggle row of the user with its provider. A
// provider without a row has never been toggled and counts as inactive.
func (s *AIProviderService) GetActiveAIs(ctx context.Context, userID string) ([]model.UserActiveAI, error) {
	return s.providers.ListActiveAIs(ctx, userID)
}

// ToggleActive stores the flag for (user, provider). The provider may be a
// default or one of the user's own.
func (s *AIProviderService) ToggleActive(ctx context.Context, userID, providerID string, active bool) (*model.UserActiveAI, error) {
	providerID, err := requiredID("aiProviderId", providerID)
	if err != nil {
		return nil, err
	}
	p, err := s.access.ReadableProvider(ctx, userID, providerID)
	if err != nil {
		return nil, err
	}

	ua, err := s.providers.UpsertActiveAI(ctx, userID, providerID, active)
	if err != nil {
		return nil, fmt.Errorf("toggling AI provider: %w", err)
	}
	ua.AIProvider = p

	s.logger.Info("AI provider toggled",
		slog.String("providerID", providerID),
		slog.Bool("active", active),
	)
	return ua, nil
}

func (s *AIProviderService) checkNameFree(ctx context.Context, userID, name, exceptID string) error {
	existing, err := s.providers.FindCustomProviderByName(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("checking AI provider name: %w", err)
	}
	if existing != nil && existing.ID != exceptID {
		return apperror.DuplicateName("AI provider", name)
	}
	return nil
}

func iconOrDefault(icon *string) string {
	if icon == nil || strings.TrimSpace(*icon) == "" {
		return DefaultIcon
	}
	return strings.TrimSpace(*icon)
}
